package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmettler27/Pop-sub001/pkg/models"
	"github.com/jmettler27/Pop-sub001/pkg/services"
	"github.com/valyala/fasthttp"
)

// responder helpers de respuesta compartidos por todos los handlers
type responder struct{}

// respondWithJSON envía una respuesta JSON
func (responder) respondWithJSON(ctx *fasthttp.RequestCtx, statusCode int, response interface{}) {
	ctx.Response.Header.Set("Content-Type", "application/json")
	ctx.SetStatusCode(statusCode)

	jsonData, err := json.Marshal(response)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString(`{"success": false, "error": "Error al serializar respuesta"}`)
		return
	}

	ctx.SetBody(jsonData)
}

// respondWithError envía una respuesta de error
func (r responder) respondWithError(ctx *fasthttp.RequestCtx, statusCode int, message string) {
	response := models.APIResponse{
		Success: false,
		Error:   message,
	}
	r.respondWithJSON(ctx, statusCode, response)
}

// respondWithSuccess envía una respuesta exitosa
func (r responder) respondWithSuccess(ctx *fasthttp.RequestCtx, data interface{}, message string) {
	response := models.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
	r.respondWithJSON(ctx, fasthttp.StatusOK, response)
}

// respondWithServiceError traduce los errores del motor a códigos HTTP
func (r responder) respondWithServiceError(ctx *fasthttp.RequestCtx, err error, message string) {
	status := statusFor(err)
	switch status {
	case fasthttp.StatusInternalServerError:
		slog.Error("❌ "+message, "path", string(ctx.Path()), "error", err)
	case fasthttp.StatusNotFound:
		slog.Info("🔍 "+message, "path", string(ctx.Path()), "error", err)
	}
	r.respondWithError(ctx, status, fmt.Sprintf("%s: %v", message, err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return fasthttp.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return fasthttp.StatusNotFound
	case errors.Is(err, services.ErrStaleState):
		return fasthttp.StatusConflict
	case errors.Is(err, services.ErrRetryExhausted):
		return fasthttp.StatusServiceUnavailable
	}
	return fasthttp.StatusInternalServerError
}

// decodeBody lee el cuerpo JSON; un cuerpo vacío deja v sin tocar.
func (r responder) decodeBody(ctx *fasthttp.RequestCtx, v interface{}) bool {
	body := ctx.PostBody()
	if len(body) == 0 {
		return true
	}
	if err := json.Unmarshal(body, v); err != nil {
		r.respondWithError(ctx, fasthttp.StatusBadRequest, "JSON inválido")
		return false
	}
	return true
}

func pathParam(ctx *fasthttp.RequestCtx, name string) string {
	value, _ := ctx.UserValue(name).(string)
	return value
}
