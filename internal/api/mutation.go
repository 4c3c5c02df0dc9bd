package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"reflect"
	"sort"

	"github.com/tidwall/gjson"
)

// Verb is the HTTP verb a Mutation issues.
type Verb string

const (
	VerbPost   Verb = "post"
	VerbPut    Verb = "put"
	VerbDelete Verb = "delete"
)

// Notifier receives the transient success/error notification raised after
// every mutation.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// Invalidator marks cached reads stale after a successful mutation.
type Invalidator interface {
	Invalidate(key string)
}

// Envelope lets one call supply both a path suffix and a body, so a single
// Mutation can serve several related endpoints on the same resource.
type Envelope struct {
	Path string
	Body interface{}
}

// File is a binary attachment inside a mutation payload. Its presence
// switches the whole payload to multipart form encoding.
type File struct {
	Name    string
	Content []byte
}

// Mutation is a configured write operation: a verb, a base path, and
// optionally a cache key to invalidate on success.
type Mutation struct {
	client      *Client
	verb        Verb
	basePath    string
	key         string
	notifier    Notifier
	invalidator Invalidator
}

// MutationOption configures a Mutation.
type MutationOption func(*Mutation)

// WithNotifier routes the transient notifications to n.
func WithNotifier(n Notifier) MutationOption {
	return func(m *Mutation) { m.notifier = n }
}

// WithInvalidation marks the cached read under key stale after success.
func WithInvalidation(inv Invalidator, key string) MutationOption {
	return func(m *Mutation) {
		m.invalidator = inv
		m.key = key
	}
}

// NewMutation creates a mutation bound to this client.
func (c *Client) NewMutation(verb Verb, basePath string, opts ...MutationOption) *Mutation {
	m := &Mutation{client: c, verb: verb, basePath: basePath}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Do executes the mutation. arg may be nil, a path-suffix string, an
// Envelope, or a payload (struct or map). A map payload containing a File
// is re-encoded as multipart form data with array values expanded to
// indexed keys; everything else is sent as JSON.
func (m *Mutation) Do(ctx context.Context, arg interface{}) ([]byte, error) {
	path := m.basePath
	var payload interface{}

	switch v := arg.(type) {
	case nil:
	case string:
		path = m.basePath + v
	case Envelope:
		path = m.basePath + v.Path
		payload = v.Body
	default:
		payload = arg
	}

	var body []byte
	contentType := ""
	if payload != nil && m.verb != VerbDelete {
		var err error
		body, contentType, err = encodePayload(payload)
		if err != nil {
			m.fail("Something went wrong")
			return nil, err
		}
	}

	method, err := m.verb.method()
	if err != nil {
		return nil, err
	}

	respBody, status, err := m.client.request(ctx, method, path, nil, body, contentType, nil)
	if err != nil {
		m.fail("Something went wrong")
		return nil, err
	}
	if status >= 400 {
		parsed := parseError(respBody, status)
		m.fail(UserMessage(parsed, "Something went wrong"))
		return nil, parsed
	}

	message := gjson.GetBytes(respBody, "message").String()
	if message == "" {
		message = "Successful"
	}
	if m.notifier != nil {
		m.notifier.Success(message)
	}
	if m.key != "" && m.invalidator != nil {
		m.invalidator.Invalidate(m.key)
	}
	return respBody, nil
}

func (m *Mutation) fail(message string) {
	if m.notifier != nil {
		m.notifier.Error(message)
	}
}

func (v Verb) method() (string, error) {
	switch v {
	case VerbPost:
		return http.MethodPost, nil
	case VerbPut:
		return http.MethodPut, nil
	case VerbDelete:
		return http.MethodDelete, nil
	default:
		return "", fmt.Errorf("unsupported mutation verb %q", v)
	}
}

// encodePayload picks the wire encoding: multipart when a map payload
// carries a File, JSON otherwise.
func encodePayload(payload interface{}) ([]byte, string, error) {
	if fields, ok := payload.(map[string]interface{}); ok && hasFile(fields) {
		return encodeMultipart(fields)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("marshal payload: %w", err)
	}
	return body, "application/json", nil
}

func hasFile(fields map[string]interface{}) bool {
	for _, v := range fields {
		switch f := v.(type) {
		case File, *File:
			return true
		case []interface{}:
			for _, item := range f {
				if _, ok := item.(File); ok {
					return true
				}
			}
		default:
		}
	}
	return false
}

// encodeMultipart writes the payload as multipart form data. Keys are
// emitted in sorted order; array values expand to indexed keys.
func encodeMultipart(fields map[string]interface{}) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := writePart(w, key, fields[key]); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func writePart(w *multipart.Writer, key string, value interface{}) error {
	switch v := value.(type) {
	case File:
		return writeFilePart(w, key, v)
	case *File:
		if v == nil {
			return nil
		}
		return writeFilePart(w, key, *v)
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		for i := 0; i < rv.Len(); i++ {
			indexed := fmt.Sprintf("%s[%d]", key, i)
			if err := writePart(w, indexed, rv.Index(i).Interface()); err != nil {
				return err
			}
		}
		return nil
	}

	if err := w.WriteField(key, fmt.Sprint(value)); err != nil {
		return fmt.Errorf("write field %s: %w", key, err)
	}
	return nil
}

func writeFilePart(w *multipart.Writer, key string, f File) error {
	part, err := w.CreateFormFile(key, f.Name)
	if err != nil {
		return fmt.Errorf("create form file %s: %w", key, err)
	}
	if _, err := part.Write(f.Content); err != nil {
		return fmt.Errorf("write form file %s: %w", key, err)
	}
	return nil
}
