package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo_String(t *testing.T) {
	info := Info{Version: "1.2.3", Commit: "abc123", BuildDate: "2026-01-02"}
	assert.Equal(t, "incidenthub 1.2.3 (commit abc123, built 2026-01-02)", info.String())
	assert.Equal(t, Version, Get().Version)
}
