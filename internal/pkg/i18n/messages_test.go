package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/strogmv/notifyevents/internal/domain"
)

func TestLang(t *testing.T) {
	assert.Equal(t, "en", Lang(""))
	assert.Equal(t, "es", Lang("es-MX,es;q=0.9,en;q=0.5"))
	assert.Equal(t, "en", Lang("fr-FR"))
}

func TestMessageFallbacks(t *testing.T) {
	assert.Equal(t, "El mensaje es obligatorio.", Message("es", domain.CodeNoMessage))
	assert.Equal(t, "The message is required.", Message("de", domain.CodeNoMessage))
	assert.Equal(t, "unknown:code", Message("en", "unknown:code"))
}

func TestCatalogsCoverSameCodes(t *testing.T) {
	for code := range catalog["en"] {
		_, ok := catalog["es"][code]
		assert.Truef(t, ok, "missing spanish message for %s", code)
	}
}
