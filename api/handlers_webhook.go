package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/xraph/cashier/webhook"
)

// webhookProvider names the gateway in OnWebhookReceived events.
const webhookProvider = "gateway"

// paymentWebhook applies a signed gateway callback. Replays of an already
// applied event answer 200 so the gateway stops retrying.
func (a *API) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	if a.verifier == nil {
		a.fail(w, r, errNoVerifier)
		return
	}

	body, err := readBody(w, r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	hdr, err := webhook.FromRequest(r.Header)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.verifier.Verify(body, hdr); err != nil {
		a.logger.Warn("api: webhook rejected", "error", err)
		a.fail(w, r, err)
		return
	}

	ev, err := webhook.Parse(body)
	if err != nil {
		if !errors.Is(err, webhook.ErrUnknownEvent) {
			err = fmt.Errorf("%w: %v", errBadRequest, err)
		}
		a.fail(w, r, err)
		return
	}

	a.engine.Plugins().EmitWebhookReceived(r.Context(), webhookProvider, body)

	if err := a.engine.HandleWebhook(r.Context(), ev); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
