package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/St1cky1/todo-service/internal/entity"
)

const maxBodyBytes = 1 << 20

// decodeJSON читает тело запроса. strict запрещает неизвестные поля
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, strict bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if strict {
		dec.DisallowUnknownFields()
	}

	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", entity.ErrValidation)
		}
		return fmt.Errorf("%w: invalid JSON: %v", entity.ErrValidation, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: request body must contain a single JSON object", entity.ErrValidation)
	}
	return nil
}
