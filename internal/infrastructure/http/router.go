package httpapi

import "net/http"

func NewRouter(handler *Handler, metrics http.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", handler.Index)
	mux.HandleFunc("POST /pay", handler.Pay)
	mux.HandleFunc("POST /confirm", handler.Confirm)
	mux.HandleFunc("POST /abort_resubmit", handler.AbortResubmit)
	mux.HandleFunc("GET /current_checkout", handler.CurrentCheckout)
	mux.HandleFunc("GET /last_checkout_id", handler.CurrentCheckout)

	mux.HandleFunc("GET /chains", handler.ListChains)
	mux.HandleFunc("GET /chains/{id}", handler.GetChain)
	mux.HandleFunc("POST /chains/{id}/abort", handler.AbortChain)
	mux.HandleFunc("GET /chains/{id}/events", handler.ChainEvents)

	mux.HandleFunc("POST /pair", handler.Pair)
	mux.HandleFunc("GET /device_status", handler.DeviceStatus)

	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	return mux
}
