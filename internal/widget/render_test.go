package widget

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplates(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)
	assert.NotNil(t, tmpl.Lookup(WidgetTemplate))
	assert.NotNil(t, tmpl.Lookup(InstallTemplate))
}

func TestTemplateRenderer(t *testing.T) {
	r := NewTemplateRenderer(nil, "Problem entities")
	info := PlacementInfo{
		Placement: "CRM_DEAL_DETAIL_TAB",
		Options:   map[string]any{"ID": "42"},
		Lang:      "en",
	}

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, info))

	out := buf.String()
	assert.Contains(t, out, `<title>Problem entities</title>`)
	assert.Contains(t, out, `lang="en"`)
	assert.Contains(t, out, `data-placement="CRM_DEAL_DETAIL_TAB"`)
	assert.Contains(t, out, `data-entity="42"`)
	assert.Contains(t, out, `"placement":"CRM_DEAL_DETAIL_TAB"`)
}

func TestTemplateRenderer_EscapesOptions(t *testing.T) {
	r := NewTemplateRenderer(nil, "t")
	info := PlacementInfo{
		Placement: "CRM_DEAL_DETAIL_TAB",
		Options:   map[string]any{"ID": "</script><script>alert(1)</script>"},
	}

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, info))
	assert.NotContains(t, buf.String(), "<script>alert(1)")
}

func TestInstallTemplate(t *testing.T) {
	tmpl := MustTemplates()

	var buf bytes.Buffer
	err := tmpl.ExecuteTemplate(&buf, InstallTemplate, InstallPage{
		AppName:    "placekit",
		HandlerURL: "https://w.example.com/widget.html",
		Bound:      []string{"CRM_DEAL_DETAIL_TAB"},
		Failed:     []string{"CRM_COMPANY_DETAIL_TAB: denied"},
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "BX24.installFinish()")
	assert.Contains(t, buf.String(), `<li class="bound">CRM_DEAL_DETAIL_TAB</li>`)

	buf.Reset()
	require.NoError(t, tmpl.ExecuteTemplate(&buf, InstallTemplate, InstallPage{Error: "handshake failed"}))
	assert.NotContains(t, buf.String(), "installFinish")
}
