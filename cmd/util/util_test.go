package util

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/errors"
)

func TestPromptYesOrNo(t *testing.T) {
	tests := []struct {
		name  string
		input string
		exp   bool
	}{
		{name: "Yes", input: "y\n", exp: true},
		{name: "FullYes", input: " YES \n", exp: true},
		{name: "No", input: "n\n", exp: false},
		{name: "Empty", input: "\n", exp: false},
		{name: "NoNewline", input: "y", exp: true},
		{name: "Garbage", input: "maybe\n", exp: false},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			out := bytes.NewBuffer(nil)
			stdout = out
			stdin = strings.NewReader(test.input)

			resp, err := PromptYesOrNo("Continue?")
			assert.NoError(t, err)
			assert.Equal(t, test.exp, resp)
			assert.Equal(t, "Continue? [y/N] ", out.String())
		})
	}
}

func TestHandleFatalError(t *testing.T) {
	var exitCode int
	exit = func(code int) { exitCode = code }

	HandleFatalError(errors.NewFriendlyError("friendly"))
	assert.Equal(t, 1, exitCode)

	exitCode = 0
	HandleFatalError(errors.New("unfriendly"))
	assert.Equal(t, 1, exitCode)
}

func TestHandlePanic(t *testing.T) {
	var exitCode int
	exit = func(code int) { exitCode = code }

	func() {
		defer HandlePanic()
		panic("boom")
	}()
	assert.Equal(t, 1, exitCode)

	exitCode = 0
	func() {
		defer HandlePanic()
	}()
	assert.Equal(t, 0, exitCode)
}

func TestProgressPrinter(t *testing.T) {
	out := bytes.NewBuffer(nil)
	pp := NewProgressPrinter(out, "Syncing")
	pp.interval = time.Millisecond

	go pp.Run()
	time.Sleep(20 * time.Millisecond)
	pp.Stop()

	printed := out.String()
	assert.True(t, strings.HasPrefix(printed, "Syncing."), printed)
	assert.True(t, strings.HasSuffix(printed, "\n"), printed)
}
