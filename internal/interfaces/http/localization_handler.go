package http

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/text/language"

	"github.com/jhoicas/tutorlab-api/internal/domain"
)

// LocalizationHandler sirve los catálogos <lang>.json de un directorio.
type LocalizationHandler struct {
	dir string
}

// NewLocalizationHandler construye el handler.
func NewLocalizationHandler(dir string) *LocalizationHandler {
	return &LocalizationHandler{dir: dir}
}

// Get godoc
// @Summary      Catálogo de traducciones
// @Tags         localization
// @Produce      json
// @Param        lang  path  string  true  "código de idioma BCP-47 (en, es, es-AR...)"
// @Success      200
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/localization/{lang} [get]
func (h *LocalizationHandler) Get(c *fiber.Ctx) error {
	tag, err := language.Parse(c.Params("lang"))
	if err != nil {
		return fmt.Errorf("%w: código de idioma inválido", domain.ErrInvalidInput)
	}
	base, _ := tag.Base()
	name := base.String() + ".json"
	path := filepath.Join(h.dir, name)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &domain.NotFoundError{Entity: "localization", ID: base.String()}
		}
		return err
	}
	c.Attachment(name)
	return c.SendFile(path)
}
