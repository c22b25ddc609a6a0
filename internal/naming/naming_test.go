package naming

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btcsaas/eps-generator/internal/spec"
)

func TestCaseConversions(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "User", Pascal("user"))
	assert.Equal(t, "OrderItem", Pascal("order_item"))
	assert.Equal(t, "UserProfile", Pascal("user-profile"))
	assert.Equal(t, "GetUsers", Pascal("getUsers"))
	assert.Equal(t, "getUsers", Camel("GetUsers"))
	assert.Equal(t, "user-service", Kebab("UserService"))
	assert.Equal(t, "order-item", Kebab("OrderItem"))
}

func TestOperationName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		ep   spec.Endpoint
		want string
	}{
		{"operation id", spec.Endpoint{Path: "/users", Method: spec.GET, OperationID: "getUsers"}, "GetUsers"},
		{"path fallback", spec.Endpoint{Path: "/users/{id}", Method: spec.GET}, "GetUsersId"},
		{"nested path", spec.Endpoint{Path: "/orders/{orderId}/items", Method: spec.DELETE}, "DeleteOrdersOrderIdItems"},
		{"root path", spec.Endpoint{Path: "/", Method: spec.POST}, "Post"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OperationName(tt.ep))
		})
	}
}

func TestRefName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "User", RefName("#/definitions/User"))
	assert.Equal(t, "OrderItem", RefName("#/components/schemas/order_item"))
	assert.Equal(t, "Pet", RefName("Pet"))
}

func TestIsIdentifier(t *testing.T) {
	t.Parallel()
	assert.True(t, IsIdentifier("userId"))
	assert.True(t, IsIdentifier("$meta"))
	assert.False(t, IsIdentifier("user-id"))
	assert.False(t, IsIdentifier("1st"))
	assert.False(t, IsIdentifier(""))
}

func TestRegistry_Claim(t *testing.T) {
	t.Parallel()
	r := NewRegistry("type")
	require.NoError(t, r.Claim("UserInfo", "user_info"))
	require.NoError(t, r.Claim("UserInfo", "user_info"))

	err := r.Claim("UserInfo", "userInfo")
	require.Error(t, err)
	var ce *CollisionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "user_info", ce.Existing)
	assert.Equal(t, "userInfo", ce.Incoming)
	assert.Contains(t, err.Error(), "UserInfo")
}
