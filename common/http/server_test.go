package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer() *HttpServer {
	s := NewHttpServer(WithMode("test"))
	s.Use(CorsMiddleware([]string{"https://huddle.games"}, nil), LoggerMiddleware())
	s.GET("/ok", func(c *Context) error {
		c.Success(map[string]string{"id": c.GetQuery("id")})
		return nil
	})
	s.GET("/fail", func(c *Context) error {
		return errors.New("boom")
	})
	s.GET("/panic", func(c *Context) error {
		panic("boom")
	})
	return s
}

func serve(s *HttpServer, method, path, origin string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, nil)
	if origin != "" {
		r.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("响应不是合法的 JSON: %s", w.Body.String())
	}
	return resp
}

func TestHandlerResponses(t *testing.T) {
	s := newTestServer()

	w := serve(s, http.MethodGet, "/ok?id=7", "")
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200, 实际 %d", w.Code)
	}
	if resp := decodeResponse(t, w); resp.Code != CodeSuccess || resp.Message != MsgSuccess {
		t.Errorf("成功响应不符: %+v", resp)
	}

	w = serve(s, http.MethodGet, "/fail", "")
	if w.Code != http.StatusInternalServerError || decodeResponse(t, w).Code != CodeServerError {
		t.Errorf("处理器返回错误时期望 500, 实际 %d %s", w.Code, w.Body.String())
	}

	w = serve(s, http.MethodGet, "/panic", "")
	if w.Code != http.StatusInternalServerError || decodeResponse(t, w).Code != CodeServerError {
		t.Errorf("panic 时期望 500, 实际 %d %s", w.Code, w.Body.String())
	}
}

func TestCorsMiddleware(t *testing.T) {
	s := newTestServer()

	w := serve(s, http.MethodGet, "/ok", "https://huddle.games")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://huddle.games" {
		t.Errorf("允许的来源应该原样返回, 实际 %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST" {
		t.Errorf("默认方法期望 GET, POST, 实际 %q", got)
	}

	w = serve(s, http.MethodGet, "/ok", "https://evil.example")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("不允许的来源不应该返回 Allow-Origin, 实际 %q", got)
	}

	w = serve(s, http.MethodOptions, "/ok", "https://huddle.games")
	if w.Code != http.StatusNoContent {
		t.Errorf("预检请求期望 204, 实际 %d", w.Code)
	}

	open := NewHttpServer(WithMode("test"))
	open.Use(CorsMiddleware([]string{"*"}, []string{"GET"}))
	open.GET("/ok", func(c *Context) error {
		c.Success(nil)
		return nil
	})
	w = serve(open, http.MethodGet, "/ok", "https://anything")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("* 配置期望返回 *, 实际 %q", got)
	}
}
