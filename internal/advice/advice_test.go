package advice

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedContent(t *testing.T) {
	page, err := Load()
	require.NoError(t, err)

	require.Len(t, page.Sections, 4)
	assert.Contains(t, page.Sections[0].Title, "Construire son Budget")
	assert.Contains(t, page.Sections[1].Title, "Épargne de Précaution")
	assert.Contains(t, page.Sections[2].Title, "Pièges à Éviter")
	assert.Contains(t, page.Sections[3].Title, "Objectifs d'Investissement")

	assert.Contains(t, string(page.Intro), "r/vosfinances")
	assert.Contains(t, string(page.Sections[0].Body), "<strong>10%</strong>")
	assert.Contains(t, string(page.Sections[1].Body), "3 à 6 mois")
	assert.Contains(t, string(page.Sections[2].Body), "<ol>")
	assert.NotContains(t, string(page.Sections[0].Body), "<h2", "section heading is rendered by the page")
}

func TestRenderWithoutHeadings(t *testing.T) {
	page, err := Render([]byte("Just *one* paragraph."))
	require.NoError(t, err)
	assert.Empty(t, page.Sections)
	assert.Equal(t, "<p>Just <em>one</em> paragraph.</p>", strings.TrimSpace(string(page.Intro)))
}

func TestRenderEscapesRawHTML(t *testing.T) {
	page, err := Render([]byte("## Title\n\n<script>alert(1)</script>\n"))
	require.NoError(t, err)
	require.Len(t, page.Sections, 1)
	assert.Equal(t, "Title", page.Sections[0].Title)
	assert.NotContains(t, string(page.Sections[0].Body), "<script>")
	assert.Empty(t, strings.TrimSpace(string(page.Intro)))
}
