package knowledge

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestExtractTags_FromHeadings(t *testing.T) {
	md := "# Guía de Operaciones\ntexto\n## Crear una venta\nmás texto con casa"

	tags := ExtractTags(md)

	assert.Equal(t, []string{"guía", "operaciones", "crear", "venta"}, tags)
}

func TestExtractTags_Deduplicates(t *testing.T) {
	tags := ExtractTags("# Ventas rápidas\n# Ventas lentas")

	assert.Equal(t, []string{"ventas", "rápidas", "lentas"}, tags)
}

func TestExtractTags_StripsPunctuation(t *testing.T) {
	tags := ExtractTags("# Venta, compra\n## ¿Cómo cargar una operación?\n# (Alquiler)")

	assert.Equal(t, []string{"venta", "compra", "cómo", "cargar", "operación", "alquiler"}, tags)
}

func TestExtractTags_CappedAtTen(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&b, "# heading%02d\nbody\n", i)
	}

	tags := ExtractTags(b.String())

	assert.Len(t, tags, MaxTags)
	assert.Equal(t, "heading00", tags[0])
	for _, tag := range tags {
		assert.Greater(t, utf8.RuneCountInString(tag), 3)
	}
}

func TestExtractTags_VocabularyFallback(t *testing.T) {
	tags := ExtractTags("Cómo registrar una VENTA de la casa")

	assert.Equal(t, []string{"venta", "casa"}, tags)
}

func TestExtractTags_ShortHeadingWordsFallBack(t *testing.T) {
	tags := ExtractTags("# Uno dos\nuna reserva")

	assert.Equal(t, []string{"reserva"}, tags)
}

func TestExtractTags_NothingMatches(t *testing.T) {
	assert.Empty(t, ExtractTags("nothing relevant here"))
}

func TestTagExtractor_CustomVocabulary(t *testing.T) {
	e := NewTagExtractor([]string{"kubernetes", "helm"})

	assert.Equal(t, []string{"helm"}, e.Extract("deploying with Helm charts"))
}
