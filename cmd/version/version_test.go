package version

import (
	"bytes"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/version"
)

func TestRun(t *testing.T) {
	out := bytes.NewBuffer(nil)
	stdout = out
	version.Version = "v1.2.0"

	run()
	assert.Equal(t, "version:  v1.2.0\n"+
		"platform: "+runtime.GOOS+"/"+runtime.GOARCH+"\n", out.String())
}
