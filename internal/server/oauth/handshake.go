package oauth

import (
	"encoding/json"
	"html/template"
	"net/http"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Handshake is the outcome posted to the opener window.
type Handshake struct {
	Status  string
	Payload any
}

type successPayload struct {
	Token    string `json:"token"`
	Provider string `json:"provider"`
}

type errorPayload struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func failure(msg, description string) Handshake {
	return Handshake{Status: StatusError, Payload: errorPayload{Error: msg, ErrorDescription: description}}
}

// Message is the string the CMS listens for.
func (h Handshake) Message() (string, error) {
	content, err := json.Marshal(h.Payload)
	if err != nil {
		return "", err
	}
	return "authorization:" + ProviderGitHub + ":" + h.Status + ":" + string(content), nil
}

var handshakePage = template.Must(template.New("handshake").Parse(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <title>Authorizing Decap...</title>
  </head>
  <body>
    <script>
      (function () {
        if (!window.opener) {
          return;
        }
        window.opener.postMessage({{.Announce}}, '*');
        window.opener.postMessage({{.Message}}, '*');
        setTimeout(function () {
          window.close();
        }, 300);
      })();
    </script>
  </body>
</html>
`))

// Render writes the popup page. Both strings are emitted as JavaScript
// string literals by html/template.
func (h Handshake) Render(w http.ResponseWriter) error {
	msg, err := h.Message()
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	return handshakePage.Execute(w, struct {
		Announce string
		Message  string
	}{
		Announce: "authorizing:" + ProviderGitHub,
		Message:  msg,
	})
}
