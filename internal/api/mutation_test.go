package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
)

type recordingNotifier struct {
	successes []string
	errors    []string
}

func (n *recordingNotifier) Success(msg string) { n.successes = append(n.successes, msg) }
func (n *recordingNotifier) Error(msg string)   { n.errors = append(n.errors, msg) }

type recordingInvalidator struct {
	keys []string
}

func (i *recordingInvalidator) Invalidate(key string) { i.keys = append(i.keys, key) }

func TestMutationSuffixArg(t *testing.T) {
	var gotPath, gotMethod string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		w.Write([]byte(`{"message":"Order cancelled"}`))
	}), nil)

	notifier := &recordingNotifier{}
	m := client.NewMutation(VerbPut, "/api/Orders/", WithNotifier(notifier))
	if _, err := m.Do(context.Background(), "o1/cancel"); err != nil {
		t.Fatal(err)
	}

	if gotMethod != http.MethodPut || gotPath != "/api/Orders/o1/cancel" {
		t.Fatalf("request = %s %s", gotMethod, gotPath)
	}
	if len(notifier.successes) != 1 || notifier.successes[0] != "Order cancelled" {
		t.Fatalf("notifications = %+v", notifier)
	}
}

func TestMutationEnvelopeArg(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{}`))
	}), nil)

	m := client.NewMutation(VerbPut, "/api/orders")
	_, err := m.Do(context.Background(), Envelope{
		Path: "/o1/update-order-status",
		Body: map[string]string{"orderStatus": "Delivered"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if gotPath != "/api/orders/o1/update-order-status" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotBody["orderStatus"] != "Delivered" {
		t.Fatalf("body = %+v", gotBody)
	}
}

func TestMutationDefaultSuccessMessage(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}), nil)

	notifier := &recordingNotifier{}
	m := client.NewMutation(VerbPost, "/api/categories/category", WithNotifier(notifier))
	if _, err := m.Do(context.Background(), map[string]interface{}{"name": "Shoes"}); err != nil {
		t.Fatal(err)
	}

	if len(notifier.successes) != 1 || notifier.successes[0] != "Successful" {
		t.Fatalf("notifications = %+v", notifier)
	}
}

func TestMutationErrorNotification(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message":"Category already exists"}`))
	}), nil)

	notifier := &recordingNotifier{}
	inv := &recordingInvalidator{}
	m := client.NewMutation(VerbPost, "/api/categories/category",
		WithNotifier(notifier), WithInvalidation(inv, "categories"))
	if _, err := m.Do(context.Background(), map[string]interface{}{"name": "Shoes"}); err == nil {
		t.Fatal("expected error")
	}

	if len(notifier.errors) != 1 || notifier.errors[0] != "Category already exists" {
		t.Fatalf("notifications = %+v", notifier)
	}
	if len(inv.keys) != 0 {
		t.Fatalf("failed mutation must not invalidate, got %v", inv.keys)
	}
}

func TestMutationInvalidatesOnSuccess(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"ok"}`))
	}), nil)

	inv := &recordingInvalidator{}
	m := client.NewMutation(VerbPost, "/api/categories/category", WithInvalidation(inv, "categories"))
	if _, err := m.Do(context.Background(), map[string]interface{}{"name": "Shoes"}); err != nil {
		t.Fatal(err)
	}

	if len(inv.keys) != 1 || inv.keys[0] != "categories" {
		t.Fatalf("invalidated = %v", inv.keys)
	}
}

func TestMutationDeleteSendsNoBody(t *testing.T) {
	var gotMethod string
	var gotLen int64
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotLen = r.ContentLength
		w.Write([]byte(`{"message":"Product deleted"}`))
	}), nil)

	m := client.NewMutation(VerbDelete, "/api/products")
	if _, err := m.Do(context.Background(), "/delete/p1"); err != nil {
		t.Fatal(err)
	}
	if gotMethod != http.MethodDelete {
		t.Fatalf("method = %q", gotMethod)
	}
	if gotLen > 0 {
		t.Fatalf("delete carried a body of %d bytes", gotLen)
	}
}

func TestMutationMultipartWithFile(t *testing.T) {
	var fields map[string][]string
	var fileName string
	var fileContent []byte
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("not multipart: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fields = r.MultipartForm.Value
		file, header, err := r.FormFile("image")
		if err != nil {
			t.Errorf("missing file part: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		fileName = header.Filename
		buf := make([]byte, header.Size)
		file.Read(buf)
		fileContent = buf
		w.Write([]byte(`{"message":"Product added"}`))
	}), nil)

	m := client.NewMutation(VerbPost, "/api/products/addProduct")
	payload := map[string]interface{}{
		"name":  "Jacket",
		"price": 2500,
		"sizes": []string{"S", "M"},
		"image": File{Name: "jacket.png", Content: []byte{0x89, 0x50, 0x4e, 0x47}},
	}
	if _, err := m.Do(context.Background(), payload); err != nil {
		t.Fatal(err)
	}

	if got := fields["name"]; len(got) != 1 || got[0] != "Jacket" {
		t.Fatalf("name field = %v", fields["name"])
	}
	if got := fields["sizes[0]"]; len(got) != 1 || got[0] != "S" {
		t.Fatalf("sizes[0] = %v", got)
	}
	if got := fields["sizes[1]"]; len(got) != 1 || got[0] != "M" {
		t.Fatalf("sizes[1] = %v", got)
	}
	if fileName != "jacket.png" {
		t.Fatalf("file name = %q", fileName)
	}
	if string(fileContent) != string([]byte{0x89, 0x50, 0x4e, 0x47}) {
		t.Fatalf("file content = %v", fileContent)
	}
}

func TestMutationPlainPayloadStaysJSON(t *testing.T) {
	var contentType string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{}`))
	}), nil)

	m := client.NewMutation(VerbPost, "/api/products/addProduct")
	if _, err := m.Do(context.Background(), map[string]interface{}{"name": "Jacket"}); err != nil {
		t.Fatal(err)
	}
	if contentType != "application/json" {
		t.Fatalf("Content-Type = %q, want application/json", contentType)
	}
}
