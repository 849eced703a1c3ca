package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTML(t *testing.T) {
	out, err := HTML(Render("## Overview\nVisit **Jaflong** via [Sylhet](https://example.com/?a=1&b=2).\n\n- Eat <pitha>"))
	require.NoError(t, err)

	assert.Equal(t, `<div class="markdown-body">`+
		`<h2>Overview</h2>`+
		`<p>Visit <strong>Jaflong</strong> via <a href="https://example.com/?a=1&amp;b=2" target="_blank" rel="noopener noreferrer">Sylhet</a>.</p>`+
		`<div class="spacer"></div>`+
		`<div class="list-item"><span class="bullet">•</span><div>Eat &lt;pitha&gt;</div></div>`+
		`</div>`, out)
}

func TestHTML_Empty(t *testing.T) {
	out, err := HTML(nil)
	require.NoError(t, err)
	assert.Equal(t, `<div class="markdown-body"></div>`, out)
}

func TestDocument(t *testing.T) {
	out, err := Document("Sajek Valley", Render("### Stay\nCottages"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"), out)
	assert.Contains(t, out, `<title>Sajek Valley</title>`)
	assert.Contains(t, out, `<h1>Sajek Valley</h1>`)
	assert.Contains(t, out, `<h3>Stay</h3><p>Cottages</p>`)
}
