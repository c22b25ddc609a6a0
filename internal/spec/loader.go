package spec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ParseFromURL fetches a JSON or YAML document over http(s) and parses it.
func (p *Parser) ParseFromURL(ctx context.Context, rawURL string) (*Document, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, &SpecError{Code: InputError, Message: "spec: url is empty"}
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("spec: invalid url %q", rawURL), Location: rawURL, Cause: err}
	}
	if scheme := strings.ToLower(u.Scheme); scheme != "http" && scheme != "https" {
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("spec: unsupported URL scheme %q (only http/https allowed)", scheme), Location: rawURL}
	}

	p.logger.Debug("fetching document", zap.String("url", rawURL))
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json, application/yaml;q=0.9, */*;q=0.5").
		Get(rawURL)
	if err != nil {
		return nil, &SpecError{Code: FetchError, Message: fmt.Sprintf("fetch %s: %v", rawURL, err), Location: rawURL, Cause: err}
	}
	if resp.IsError() {
		return nil, &SpecError{Code: FetchError, Message: fmt.Sprintf("fetch %s: http %d", rawURL, resp.StatusCode()), Location: rawURL}
	}

	raw, err := decodeRaw(resp.Body())
	if err != nil {
		return nil, &SpecError{Code: ParseError, Message: err.Error(), Location: rawURL, Cause: err}
	}
	return p.newDocument(raw, rawURL)
}

// ParseFromFile loads a local OpenAPI 3 or Swagger 2.0 document. References
// into other files are resolved and hoisted into components.schemas.
func (p *Parser) ParseFromFile(ctx context.Context, path string) (*Document, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &SpecError{Code: InputError, Message: "spec: file path is empty"}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("resolve path: %v", err), Location: path, Cause: err}
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &SpecError{Code: FileNotFoundError, Message: fmt.Sprintf("file not found: %s", abs), Location: abs, Cause: err}
		}
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("read file %s: %v", abs, err), Location: abs, Cause: err}
	}

	raw, err := p.loadFile(ctx, abs, data)
	if err != nil {
		return nil, err
	}
	return p.newDocument(raw, abs)
}

func (p *Parser) loadFile(ctx context.Context, abs string, data []byte) (map[string]any, error) {
	version, err := detectSpecVersion(data)
	if err != nil {
		return nil, &SpecError{Code: ParseError, Message: err.Error(), Location: abs, Cause: err}
	}

	var doc *openapi3.T
	switch version {
	case 3:
		doc, err = newLoader(p.client, true).LoadFromFile(abs)
		if err != nil {
			return nil, mapValidateOrParseErr(err, abs)
		}
	case 2:
		if fixed, changed, _ := fixV2BodyParams(data); changed {
			p.logger.Debug("rewrote swagger 2.0 body parameters", zap.String("file", abs))
			data = fixed
		}
		doc, err = convertV2ToV3(data)
		if err != nil {
			return nil, &SpecError{Code: ConversionError, Message: fmt.Sprintf("convert v2→v3: %v", err), Location: abs, Cause: err}
		}
		if err := newLoader(p.client, true).ResolveRefsIn(doc, &url.URL{Path: abs}); err != nil {
			p.logger.Warn("failed to resolve refs after conversion", zap.String("file", abs), zap.Error(err))
		}
	default:
		// Neither openapi nor swagger key: read it as a plain document.
		p.logger.Debug("no version key, decoding without loader", zap.String("file", abs))
		raw, err := decodeRaw(data)
		if err != nil {
			return nil, &SpecError{Code: ParseError, Message: err.Error(), Location: abs, Cause: err}
		}
		return raw, nil
	}

	if err := doc.Validate(ctx); err != nil {
		if !canProceedDespiteValidation(err) {
			return nil, mapValidateOrParseErr(err, abs)
		}
		p.logger.Debug("continuing despite validation error", zap.String("file", abs), zap.Error(err))
	}

	hoistExternalRefs(doc)
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, &SpecError{Code: ParseError, Message: fmt.Sprintf("encode loaded document: %v", err), Location: abs, Cause: err}
	}
	raw, err := decodeRaw(out)
	if err != nil {
		return nil, &SpecError{Code: ParseError, Message: err.Error(), Location: abs, Cause: err}
	}
	return raw, nil
}

func newLoader(client *resty.Client, allowFile bool) *openapi3.Loader {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true
	loader.ReadFromURIFunc = func(_ *openapi3.Loader, uri *url.URL) ([]byte, error) {
		switch strings.ToLower(uri.Scheme) {
		case "", "file":
			if !allowFile {
				return nil, fmt.Errorf("blocked file ref: %s", uri.String())
			}
			path := uri.Path
			if path == "" {
				path = uri.Opaque
			}
			return os.ReadFile(path)
		case "http", "https":
			resp, err := client.R().Get(uri.String())
			if err != nil {
				return nil, err
			}
			if resp.IsError() {
				return nil, fmt.Errorf("http %d: %s", resp.StatusCode(), uri.String())
			}
			return resp.Body(), nil
		default:
			return nil, fmt.Errorf("unsupported ref scheme: %s", uri.Scheme)
		}
	}
	return loader
}

// detectSpecVersion returns 3 for OpenAPI v3, 2 for Swagger v2 and 0 when
// the document declares neither.
func detectSpecVersion(data []byte) (int, error) {
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return 0, fmt.Errorf("parse spec: %w", err)
	}
	if s, _ := root["openapi"].(string); strings.HasPrefix(strings.TrimSpace(s), "3.") {
		return 3, nil
	}
	if s, _ := root["swagger"].(string); strings.HasPrefix(strings.TrimSpace(s), "2.") {
		return 2, nil
	}
	return 0, nil
}

func convertV2ToV3(data []byte) (*openapi3.T, error) {
	var v2 openapi2.T
	if err := yaml.Unmarshal(data, &v2); err != nil {
		return nil, err
	}
	return openapi2conv.ToV3(&v2)
}

const componentSchemaPrefix = "#/components/schemas/"

// hoistExternalRefs gives every schema reached through a reference a name in
// components.schemas and rewrites the reference to point there. Schemas
// defined in other files thereby become ordinary named types.
func hoistExternalRefs(doc *openapi3.T) {
	if doc.Components == nil {
		doc.Components = &openapi3.Components{}
	}
	if doc.Components.Schemas == nil {
		doc.Components.Schemas = openapi3.Schemas{}
	}
	h := &hoister{schemas: doc.Components.Schemas, seen: map[*openapi3.Schema]bool{}}

	names := make([]string, 0, len(h.schemas))
	for name := range h.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		h.schema(h.schemas[name])
	}

	paths := make([]string, 0, len(doc.Paths))
	for p := range doc.Paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		item := doc.Paths[p]
		if item == nil {
			continue
		}
		h.parameters(item.Parameters)
		for _, op := range item.Operations() {
			h.operation(op)
		}
	}
}

type hoister struct {
	schemas openapi3.Schemas
	seen    map[*openapi3.Schema]bool
}

func (h *hoister) operation(op *openapi3.Operation) {
	if op == nil {
		return
	}
	h.parameters(op.Parameters)
	if rb := op.RequestBody; rb != nil && rb.Value != nil {
		rb.Ref = ""
		h.content(rb.Value.Content)
	}
	for _, resp := range op.Responses {
		if resp == nil || resp.Value == nil {
			continue
		}
		resp.Ref = ""
		h.content(resp.Value.Content)
		for _, hdr := range resp.Value.Headers {
			if hdr != nil && hdr.Value != nil {
				hdr.Ref = ""
				h.schema(hdr.Value.Schema)
			}
		}
	}
}

func (h *hoister) parameters(params openapi3.Parameters) {
	for _, p := range params {
		if p == nil || p.Value == nil {
			continue
		}
		p.Ref = ""
		h.schema(p.Value.Schema)
		h.content(p.Value.Content)
	}
}

func (h *hoister) content(c openapi3.Content) {
	for _, media := range c {
		if media != nil {
			h.schema(media.Schema)
		}
	}
}

func (h *hoister) schema(ref *openapi3.SchemaRef) {
	if ref == nil || ref.Value == nil {
		return
	}
	if name := refSegment(ref.Ref); name != "" {
		if _, ok := h.schemas[name]; !ok {
			h.schemas[name] = &openapi3.SchemaRef{Value: ref.Value}
		}
		ref.Ref = componentSchemaPrefix + name
	}
	if h.seen[ref.Value] {
		return
	}
	h.seen[ref.Value] = true

	s := ref.Value
	for _, prop := range s.Properties {
		h.schema(prop)
	}
	h.schema(s.Items)
	h.schema(s.Not)
	for _, list := range []openapi3.SchemaRefs{s.AllOf, s.AnyOf, s.OneOf} {
		for _, r := range list {
			h.schema(r)
		}
	}
}

// refSegment returns the name a reference points at: the last pointer
// segment, or the file name without extension for whole-file references.
func refSegment(ref string) string {
	if i := strings.LastIndex(ref, "#"); i >= 0 {
		frag := strings.TrimRight(ref[i+1:], "/")
		if frag != "" {
			return frag[strings.LastIndex(frag, "/")+1:]
		}
		ref = ref[:i]
	}
	base := filepath.Base(ref)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
