package serve

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/praetorian-inc/locus/pkg/diag"
	"github.com/praetorian-inc/locus/pkg/engine"
	"github.com/praetorian-inc/locus/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCore(t *testing.T) *engine.Core {
	t.Helper()
	core, err := engine.NewCore(engine.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { core.Close() })
	return core
}

// serve runs a server over input until EOF and returns its response lines.
func serve(t *testing.T, core *engine.Core, input string) []Response {
	t.Helper()
	out := &bytes.Buffer{}
	srv := NewServer(core, strings.NewReader(input), out)
	require.NoError(t, srv.Run(context.Background()))

	var responses []Response
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		var resp Response
		require.NoError(t, json.Unmarshal([]byte(line), &resp), "line: %s", line)
		responses = append(responses, resp)
	}
	return responses
}

func TestServer_SendsReadyOnStart(t *testing.T) {
	core := newCore(t)

	in := strings.NewReader("")
	out := &bytes.Buffer{}

	srv := NewServer(core, in, out)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately to exit after ready

	_ = srv.Run(ctx)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.NotEmpty(t, lines)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, TypeReady, resp.Type)

	var ready ReadyData
	require.NoError(t, json.Unmarshal(resp.Data, &ready))
	assert.Equal(t, Version, ready.Version)
	assert.Equal(t, []string{"dataframe arg-max", "str index-of"}, ready.Commands)
}

func TestServer_Run(t *testing.T) {
	core := newCore(t)

	request := `{"type":"run","payload":{"command":"str index-of","options":{"pattern":".rb","range":"1,"},"source":"test","input":".rb.rb"}}` + "\n"
	responses := serve(t, core, request)
	require.Len(t, responses, 2) // ready + run response

	resp := responses[1]
	assert.True(t, resp.Success, resp.Error)
	assert.Equal(t, TypeRun, resp.Type)

	var data RunData
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.True(t, data.Output.Equal(types.Int(3)), "got %s", data.Output)

	results, err := core.Store().GetAllResults()
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "test", results[0].Source)
}

func TestServer_RunRecordPaths(t *testing.T) {
	core := newCore(t)

	request := `{"type":"run","payload":{"command":"str index-of","options":{"pattern":"o","paths":["name"],"end":true},"input":[{"name":"foo"},{"name":"bar"}]}}` + "\n"
	responses := serve(t, core, request)
	require.Len(t, responses, 2)
	require.True(t, responses[1].Success, responses[1].Error)

	var data RunData
	require.NoError(t, json.Unmarshal(responses[1].Data, &data))
	want := types.List(
		types.RecordOf([]string{"name"}, []types.Value{types.Int(2)}),
		types.RecordOf([]string{"name"}, []types.Value{types.Int(-1)}),
	)
	assert.True(t, data.Output.Equal(want), "got %s", data.Output)
}

func TestServer_RunDiagnostic(t *testing.T) {
	core := newCore(t)

	request := `{"type":"run","payload":{"command":"str index-of","options":{"pattern":"x"},"input":42}}` + "\n"
	responses := serve(t, core, request)
	require.Len(t, responses, 2)

	resp := responses[1]
	assert.False(t, resp.Success)
	assert.Equal(t, TypeRun, resp.Type)
	assert.Nil(t, resp.Index)
	require.NotNil(t, resp.Diagnostic)
	assert.Equal(t, diag.KindType, resp.Diagnostic.Kind)
	assert.Equal(t, "got int", resp.Diagnostic.Label)
	assert.Equal(t, types.Span{Start: 0, End: 2}, resp.Diagnostic.Span)
}

func TestServer_RunUnknownCommand(t *testing.T) {
	core := newCore(t)

	responses := serve(t, core, `{"type":"run","payload":{"command":"str upcase","input":"x"}}`+"\n")
	require.Len(t, responses, 2)
	assert.False(t, responses[1].Success)
	assert.Contains(t, responses[1].Error, `unknown command "str upcase"`)
	assert.Nil(t, responses[1].Diagnostic)
}

func TestServer_GracefulShutdownOnContext(t *testing.T) {
	core := newCore(t)

	// Slow reader that blocks
	pr, pw := io.Pipe()
	out := &bytes.Buffer{}

	srv := NewServer(core, pr, out)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error)
	go func() {
		done <- srv.Run(ctx)
	}()

	// Wait for ready signal
	time.Sleep(100 * time.Millisecond)

	// Cancel context
	cancel()
	pw.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down in time")
	}
}

func TestServer_RunBatch(t *testing.T) {
	core := newCore(t)

	request := `{"type":"run_batch","payload":{"command":"str index-of","options":{"pattern":"/","end":true},"source":"s1","inputs":["/a/b.txt","c.txt"]}}` + "\n"
	responses := serve(t, core, request)
	require.Len(t, responses, 2)

	resp := responses[1]
	assert.True(t, resp.Success, resp.Error)
	assert.Equal(t, TypeRunBatch, resp.Type)

	var data RunBatchData
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	require.Len(t, data.Outputs, 2)
	assert.True(t, data.Outputs[0].Equal(types.Int(2)))
	assert.True(t, data.Outputs[1].Equal(types.Int(-1)))
}

func TestServer_RunBatchEmpty(t *testing.T) {
	core := newCore(t)

	responses := serve(t, core, `{"type":"run_batch","payload":{"command":"dataframe arg-max","inputs":[]}}`+"\n")
	require.Len(t, responses, 2)
	require.True(t, responses[1].Success, responses[1].Error)
	assert.JSONEq(t, `{"outputs":[]}`, string(responses[1].Data))
}

func TestServer_RunBatchFailureReportsIndex(t *testing.T) {
	core := newCore(t)

	request := `{"type":"run_batch","payload":{"command":"str index-of","options":{"pattern":"a","range":[1,2,3]},"inputs":["abc"]}}` + "\n"
	responses := serve(t, core, request)
	require.Len(t, responses, 2)

	resp := responses[1]
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Index)
	assert.Equal(t, 0, *resp.Index)
	require.NotNil(t, resp.Diagnostic)
	assert.Equal(t, diag.KindTooManyIndexes, resp.Diagnostic.Kind)
}

func TestServer_FailureDoesNotEndServer(t *testing.T) {
	core := newCore(t)

	input := `{"type":"run","payload":{"command":"str index-of","options":{"pattern":"x"},"input":1}}` + "\n" +
		`{"type":"run","payload":{"command":"str index-of","options":{"pattern":"x"},"input":"axe"}}` + "\n"
	responses := serve(t, core, input)
	require.Len(t, responses, 3)
	assert.False(t, responses[1].Success)
	assert.True(t, responses[2].Success)
}

func TestServer_CloseCommand(t *testing.T) {
	core := newCore(t)

	// Requests after close are never processed
	input := `{"type":"close"}` + "\n" + `{"type":"run","payload":{"command":"str index-of","input":"x"}}` + "\n"
	responses := serve(t, core, input)
	require.Len(t, responses, 1)
	assert.Equal(t, TypeReady, responses[0].Type)
}

func TestServer_UnknownRequestType(t *testing.T) {
	core := newCore(t)

	responses := serve(t, core, `{"type":"scan","payload":{}}`+"\n")
	require.Len(t, responses, 2)
	assert.False(t, responses[1].Success)
	assert.Equal(t, "unknown", responses[1].Type)
	assert.Contains(t, responses[1].Error, "unknown request type: scan")
}

func TestServer_MalformedJSON(t *testing.T) {
	core := newCore(t)

	responses := serve(t, core, "{not json\n")
	require.Len(t, responses, 2)
	assert.False(t, responses[1].Success)
	assert.Equal(t, "decode", responses[1].Type)
}

func TestServer_BadPayload(t *testing.T) {
	core := newCore(t)

	responses := serve(t, core, `{"type":"run","payload":{"command":7}}`+"\n")
	require.Len(t, responses, 2)
	assert.False(t, responses[1].Success)
	assert.Equal(t, TypeRun, responses[1].Type)
}
