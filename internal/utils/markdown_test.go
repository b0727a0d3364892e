package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderMarkdown_SanitizesScripts(t *testing.T) {
	out := RenderMarkdown("**好课**<script>alert(1)</script>")
	assert.Contains(t, out, "<strong>好课</strong>")
	assert.NotContains(t, out, "<script>")
}

func TestRenderMarkdown_LazyImages(t *testing.T) {
	out := RenderMarkdown("![课件](https://example.com/a.png)")
	assert.Contains(t, out, `loading="lazy"`)
	assert.Contains(t, out, `referrerpolicy="no-referrer"`)
}

func TestRenderMarkdown_VideoLinksStayLinks(t *testing.T) {
	out := RenderMarkdown("https://www.bilibili.com/video/BV1xx411c7mD")
	assert.NotContains(t, out, "<iframe")
	assert.Contains(t, out, "BV1xx411c7mD")
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "张三", StripHTML(" <b>张三</b> "))
	assert.Equal(t, "", StripHTML("<img src=x onerror=alert(1)>"))
}
