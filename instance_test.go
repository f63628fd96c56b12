package vkf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectInstanceExtensionsKeepsRequested(t *testing.T) {
	extensions, debugReport := selectInstanceExtensions(
		[]string{"VK_KHR_surface", "VK_KHR_xcb_surface"}, nil, false)
	assert.Equal(t, []string{"VK_KHR_surface", "VK_KHR_xcb_surface"}, extensions)
	assert.False(t, debugReport)
}

func TestSelectInstanceExtensionsPortabilityWhenOffered(t *testing.T) {
	available := []string{"VK_KHR_surface", PortabilityExtensionName}
	extensions, _ := selectInstanceExtensions(nil, available, false)
	assert.Contains(t, extensions, PortabilityExtensionName)
}

func TestSelectInstanceExtensionsDebugReportRequiresLoaderSupport(t *testing.T) {
	// Diagnostics on, but the loader does not offer the extension. Enabling
	// it anyway would make vkCreateInstance fail outright.
	extensions, debugReport := selectInstanceExtensions(nil, []string{"VK_KHR_surface"}, true)
	assert.NotContains(t, extensions, debugReportExtensionName)
	assert.False(t, debugReport)

	extensions, debugReport = selectInstanceExtensions(nil, []string{debugReportExtensionName}, true)
	assert.Contains(t, extensions, debugReportExtensionName)
	assert.True(t, debugReport)
}

func TestSelectInstanceExtensionsDebugReportRequiresDiagnostics(t *testing.T) {
	extensions, debugReport := selectInstanceExtensions(nil, []string{debugReportExtensionName}, false)
	assert.NotContains(t, extensions, debugReportExtensionName)
	assert.False(t, debugReport)
}
