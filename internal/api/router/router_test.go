package router

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sort"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/wb-go/wbf/ginext"

	"github.com/aliskhannn/image-optimizer/internal/api/handlers/image"
	"github.com/aliskhannn/image-optimizer/internal/archive"
	"github.com/aliskhannn/image-optimizer/internal/infra/kafka/producer"
	"github.com/aliskhannn/image-optimizer/internal/metrics"
	"github.com/aliskhannn/image-optimizer/internal/middleware"
	"github.com/aliskhannn/image-optimizer/internal/processor"
	imagesvc "github.com/aliskhannn/image-optimizer/internal/service/image"
	"github.com/aliskhannn/image-optimizer/internal/storage/file"
	"github.com/aliskhannn/image-optimizer/internal/testutil"
)

type response struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       struct {
		FileName string `json:"fileName"`
		HTMLCode string `json:"htmlCode"`
	} `json:"data"`
}

type part struct {
	field    string
	filename string
	data     []byte
}

func newRouter(t *testing.T, maxUploadBytes int64, limiter *middleware.RateLimiter) *ginext.Engine {
	t.Helper()

	store := file.NewStorage(t.TempDir())
	m := metrics.New()
	svc := imagesvc.NewService(
		processor.New(processor.DefaultOptions()),
		archive.NewBuilder(store),
		store,
		producer.Nop{},
		m,
	)

	return Setup(image.NewHandler(svc, m, maxUploadBytes), m, limiter)
}

func multipartBody(t *testing.T, parts ...part) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, p := range parts {
		if p.filename == "" {
			if err := w.WriteField(p.field, string(p.data)); err != nil {
				t.Fatalf("write field: %v", err)
			}
			continue
		}

		fw, err := w.CreateFormFile(p.field, p.filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(p.data); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	return &body, w.FormDataContentType()
}

func upload(t *testing.T, r http.Handler, parts ...part) (*httptest.ResponseRecorder, response) {
	t.Helper()

	body, contentType := multipartBody(t, parts...)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var resp response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}

	return rec, resp
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestUploadAndDownload_PNG(t *testing.T) {
	r := newRouter(t, 0, nil)

	rec, resp := upload(t, r, part{field: "image", filename: "photo.png", data: testutil.PNG(t, 1000, 800)})
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if resp.Message != "Data uploaded successfully" || resp.StatusCode != http.StatusOK {
		t.Errorf("unexpected envelope: %+v", resp)
	}

	name := resp.Data.FileName
	if !regexp.MustCompile(`^[0-9a-f-]{36}-photo\.zip$`).MatchString(name) {
		t.Errorf("fileName = %q", name)
	}

	html := resp.Data.HTMLCode
	if n := strings.Count(html, `type="image/webp"`); n != 3 {
		t.Errorf("webp sources = %d, want 3", n)
	}
	if n := strings.Count(html, `type="image/png"`); n != 3 {
		t.Errorf("png sources = %d, want 3", n)
	}
	if n := strings.Count(html, "<img "); n != 1 {
		t.Errorf("img tags = %d, want 1", n)
	}
	if strings.Contains(html, "image/jpeg") {
		t.Error("png upload must not produce jpeg sources")
	}

	dl := get(r, "/download/"+name)
	if dl.Code != http.StatusOK {
		t.Fatalf("download status = %d, body = %s", dl.Code, dl.Body.String())
	}
	if got := dl.Header().Get("Content-Type"); got != "application/zip" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := dl.Header().Get("Content-Disposition"); got != "attachment; filename="+name {
		t.Errorf("Content-Disposition = %q", got)
	}

	data := dl.Body.Bytes()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
		if !strings.Contains(html, `"`+f.Name) {
			t.Errorf("markup does not reference %s", f.Name)
		}
	}
	sort.Strings(names)

	want := []string{
		"photo-480.png", "photo-480.webp",
		"photo-767.png", "photo-767.webp",
		"photo-full.png", "photo-full.webp",
	}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("entries = %v, want %v", names, want)
	}

	again := get(r, "/download/"+name)
	if again.Code != http.StatusNotFound {
		t.Fatalf("second download status = %d, want 404", again.Code)
	}
	if !strings.Contains(again.Body.String(), "file not found or already downloaded") {
		t.Errorf("second download body = %s", again.Body.String())
	}
}

func TestUpload_Rejections(t *testing.T) {
	png := testutil.PNG(t, 800, 600)

	tests := []struct {
		name  string
		parts []part
		want  string
	}{
		{
			name: "no parts",
			want: "no file found please add file and the name of the form parameter",
		},
		{
			name:  "plain value only",
			parts: []part{{field: "image", data: []byte("hello")}},
			want:  "no file found",
		},
		{
			name: "two files in one field",
			parts: []part{
				{field: "image", filename: "a.png", data: png},
				{field: "image", filename: "b.png", data: png},
			},
			want: "more than one",
		},
		{
			name: "file and value",
			parts: []part{
				{field: "image", filename: "a.png", data: png},
				{field: "note", data: []byte("x")},
			},
			want: "more than one",
		},
		{
			name:  "gif",
			parts: []part{{field: "image", filename: "a.png", data: testutil.GIF(t, 800, 600)}},
			want:  "file is not an image with type of png or jpg",
		},
		{
			name:  "webp",
			parts: []part{{field: "image", filename: "a.webp", data: testutil.WebP(1000, 800)}},
			want:  "file is not an image with type of png or jpg",
		},
		{
			name:  "too narrow",
			parts: []part{{field: "image", filename: "a.png", data: testutil.PNG(t, 767, 600)}},
			want:  "The image width is less than 768px",
		},
	}

	r := newRouter(t, 0, nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := upload(t, r, tt.parts...)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400, body = %s", rec.Code, rec.Body.String())
			}
			if !strings.Contains(resp.Message, tt.want) {
				t.Errorf("message = %q, want it to contain %q", resp.Message, tt.want)
			}
		})
	}
}

func TestUpload_NotMultipart(t *testing.T) {
	r := newRouter(t, 0, nil)

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(`{"image":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Request is not multipart") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestUpload_TooLarge(t *testing.T) {
	r := newRouter(t, 256, nil)

	rec, resp := upload(t, r, part{field: "image", filename: "big.png", data: testutil.PNG(t, 1000, 800)})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if resp.Message != "file is too large" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestDownload_Unknown(t *testing.T) {
	r := newRouter(t, 0, nil)

	for _, path := range []string{"/download/nope.zip", "/download/.hidden.zip"} {
		if rec := get(r, path); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", path, rec.Code)
		}
	}
}

func TestHealthAndMetrics(t *testing.T) {
	r := newRouter(t, 0, nil)

	rec := get(r, "/health")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("health = %d %s", rec.Code, rec.Body.String())
	}

	get(r, "/download/missing.zip")

	rec = get(r, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `image_optimizer_downloads_total{outcome="not_found"} 1`) {
		t.Errorf("metrics output lacks the download miss:\n%s", rec.Body.String())
	}
}

func TestRateLimitSkipsHealth(t *testing.T) {
	r := newRouter(t, 0, middleware.NewRateLimiter(1))

	if rec := get(r, "/download/a.zip"); rec.Code != http.StatusNotFound {
		t.Fatalf("first request = %d, want 404", rec.Code)
	}
	if rec := get(r, "/download/a.zip"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d, want 429", rec.Code)
	}
	if rec := get(r, "/health"); rec.Code != http.StatusOK {
		t.Errorf("health is rate limited: %d", rec.Code)
	}
}
