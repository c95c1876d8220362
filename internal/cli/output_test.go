package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/veeprom/internal/eeprom"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]string{"result": "success"}))

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success("3 slots free"))
	assert.Equal(t, "3 slots free\n", buf.String())
	assert.False(t, formatter.JSON())
}

func TestOutputFormatter_StoreErrorJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.StoreError("write failed", eeprom.ErrFull, map[string]int{"addr": 8})
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "full", resp.Error.Code)
	assert.Equal(t, "write failed: "+eeprom.ErrFull.Error(), resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_StoreErrorText(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	_ = formatter.StoreError("read failed", eeprom.ErrNotReady, "ignored unless verbose")
	assert.Equal(t, "Error [not_ready]: read failed: "+eeprom.ErrNotReady.Error()+"\n", buf.String())

	buf.Reset()
	formatter.Verbose = true
	_ = formatter.StoreError("erase failed", &eeprom.FlashError{Op: "erase", Addr: 0x400, Err: errors.New("stuck")}, map[string]string{"addr": "0x400"})
	assert.Contains(t, buf.String(), "Error [flash]")
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: tt.verbose}

			formatter.VerboseLog("scanning page %d", 1)

			assert.Empty(t, out.String())
			if tt.wantLog {
				assert.Equal(t, "scanning page 1\n", errOut.String())
			} else {
				assert.Empty(t, errOut.String())
			}
		})
	}
}

func TestOutputFormatter_StoreError(t *testing.T) {
	tests := []struct {
		err  error
		code string
		exit int
	}{
		{eeprom.ErrNoData, "no_data", ExitFailure},
		{eeprom.ErrFull, "full", ExitFailure},
		{eeprom.ErrBadAlignment, "bad_alignment", ExitFailure},
		{eeprom.ErrNotReady, "not_ready", ExitFailure},
		{&eeprom.FlashError{Op: "erase", Addr: 0x400, Err: errors.New("stuck")}, "flash", ExitCommandError},
		{fmt.Errorf("wrapped: %w", eeprom.ErrInvalidConfig), "invalid_config", ExitCommandError},
		{errors.New("other"), "unknown", ExitCommandError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: buf}

			err := formatter.StoreError("op failed", tt.err, nil)
			assert.Equal(t, tt.exit, GetExitCode(err))
			assert.ErrorIs(t, err, tt.err)

			var resp Response
			require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestExitCodeFor(t *testing.T) {
	assert.Equal(t, ExitSuccess, exitCodeFor(eeprom.CodeOK))
	assert.Equal(t, ExitFailure, exitCodeFor(eeprom.CodeNoData))
	assert.Equal(t, ExitCommandError, exitCodeFor(eeprom.CodeFlash))
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("outer: %w", NewExitError(ExitCommandError, "inner"))))
}

func TestExitError_Message(t *testing.T) {
	assert.Equal(t, "load: boom", WrapExitError(ExitFailure, "load", errors.New("boom")).Error())
	assert.Equal(t, "load", NewExitError(ExitFailure, "load").Error())
}
