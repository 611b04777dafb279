package metrics

import (
	"net/http"
	"time"

	"github.com/arl/statsviz"
)

// Serve 在独立端口上暴露 /debug/statsviz/ 运行时面板
func Serve(addr string) error {
	mux := http.NewServeMux()
	if err := statsviz.Register(mux); err != nil {
		return err
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server.ListenAndServe()
}
