package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"kolamart/pos/internal/config"
	"kolamart/pos/internal/sheet"
)

// submit forwards the request payload to the Apps Script picked by urlOf
// and relays the answer as received.
func (s *Server) submit(urlOf func(*config.Config) (url, envKey string)) gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg := s.config()
		scriptURL, envKey := urlOf(cfg)

		if err := sheet.ValidateURL(scriptURL); err != nil {
			if errors.Is(err, sheet.ErrMissingURL) {
				s.log.Error("submit_missing_url", err, map[string]any{"path": c.FullPath(), "env": envKey})
				fail(c, http.StatusInternalServerError, "Missing "+envKey+" environment variable on the server.")
				return
			}

			s.log.Warn("submit_editor_url", map[string]any{"path": c.FullPath()})
			msg := "Script URL appears to be the Apps Script editor URL. Set " + envKey +
				" to the deployed web app URL (the \"web app\" exec URL), not the editor /edit URL."
			resp := gin.H{"success": false, "error": msg}
			if !cfg.Production() {
				resp["debug"] = gin.H{"scriptUrl": scriptURL, "envFound": scriptURL != ""}
			}
			c.AbortWithStatusJSON(http.StatusBadRequest, resp)
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			fail(c, http.StatusInternalServerError, err.Error())
			return
		}
		if !json.Valid(body) {
			fail(c, http.StatusInternalServerError, "request body is not valid JSON")
			return
		}

		reply, err := s.sheet.Forward(c.Request.Context(), scriptURL, sheet.Unwrap(body), cfg.Sheet.ProxyTimeout)
		if err != nil {
			s.log.Error("submit_forward_failed", err, map[string]any{
				"path":       c.FullPath(),
				"request_id": c.GetString(ctxRequestID),
			})
			fail(c, http.StatusInternalServerError, err.Error())
			return
		}

		if reply.IsJSON() {
			c.Data(reply.Status, "application/json; charset=utf-8", reply.Body)
			return
		}
		ct := reply.ContentType
		if ct == "" {
			ct = "text/plain"
		}
		c.Data(reply.Status, ct, reply.Body)
	}
}
