package serve

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/praetorian-inc/locus/pkg/command"
	"github.com/praetorian-inc/locus/pkg/diag"
	"github.com/praetorian-inc/locus/pkg/engine"
	"github.com/praetorian-inc/locus/pkg/stream"
	"github.com/praetorian-inc/locus/pkg/types"
)

// Version is the server protocol version
const Version = "1.0.0"

// Server runs registered commands for NDJSON requests
type Server struct {
	core    *engine.Core
	encoder *json.Encoder
	decoder *json.Decoder
}

// NewServer creates a new streaming server
func NewServer(core *engine.Core, in io.Reader, out io.Writer) *Server {
	return &Server{
		core:    core,
		encoder: json.NewEncoder(out),
		decoder: json.NewDecoder(bufio.NewReader(in)),
	}
}

// Run starts the server main loop
func (s *Server) Run(ctx context.Context) error {
	// Send ready signal
	s.sendReady()

	// Use buffered channels for incoming requests
	reqChan := make(chan Request, 1)
	errChan := make(chan error, 1)

	go func() {
		for {
			var req Request
			if err := s.decoder.Decode(&req); err != nil {
				errChan <- err
				return
			}
			select {
			case reqChan <- req:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Process requests until stdin closes or context cancels
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errChan:
			// Drain any pending requests before handling EOF
			for {
				select {
				case req := <-reqChan:
					if s.processRequest(ctx, req) {
						return nil
					}
				default:
					// No more pending requests
					if err == io.EOF {
						return nil
					}
					s.sendError("decode", err)
					return nil
				}
			}
		case req := <-reqChan:
			if s.processRequest(ctx, req) {
				return nil
			}
		}
	}
}

// processRequest handles a single request and returns true if the server should exit
func (s *Server) processRequest(ctx context.Context, req Request) bool {
	switch req.Type {
	case TypeRun:
		s.handleRun(ctx, req.Payload)
	case TypeRunBatch:
		s.handleRunBatch(ctx, req.Payload)
	case TypeClose:
		return true
	default:
		s.sendError("unknown", errors.New("unknown request type: "+req.Type))
	}
	return false
}

func (s *Server) sendReady() {
	data, _ := json.Marshal(ReadyData{Version: Version, Commands: command.Names()})
	s.encoder.Encode(Response{
		Success: true,
		Type:    TypeReady,
		Data:    data,
	})
}

func (s *Server) handleRun(ctx context.Context, payload json.RawMessage) {
	var p RunPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		s.sendError(TypeRun, err)
		return
	}

	outputs, err := s.run(ctx, p.Command, p.Options, p.Source, []types.Value{p.Input})
	if err != nil {
		s.sendError(TypeRun, unwrapItem(err))
		return
	}

	s.sendData(TypeRun, RunData{Output: outputs[0]})
}

func (s *Server) handleRunBatch(ctx context.Context, payload json.RawMessage) {
	var p RunBatchPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		s.sendError(TypeRunBatch, err)
		return
	}

	outputs, err := s.run(ctx, p.Command, p.Options, p.Source, p.Inputs)
	if err != nil {
		s.sendError(TypeRunBatch, err)
		return
	}

	if outputs == nil {
		outputs = []types.Value{}
	}
	s.sendData(TypeRunBatch, RunBatchData{Outputs: outputs})
}

func (s *Server) run(ctx context.Context, name string, opts json.RawMessage, source string, inputs []types.Value) ([]types.Value, error) {
	items := make([]engine.Item, len(inputs))
	for i, v := range inputs {
		item, err := engine.NewItem(v, types.RequestProvenance{Source: source, Index: i})
		if err != nil {
			return nil, err
		}
		items[i] = item
	}
	return s.core.Run(ctx, name, opts, items)
}

// unwrapItem drops the item index from single-input failures.
func unwrapItem(err error) error {
	var itemErr *stream.ItemError
	if errors.As(err, &itemErr) {
		return itemErr.Err
	}
	return err
}

func (s *Server) sendData(reqType string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.sendError(reqType, err)
		return
	}
	s.encoder.Encode(Response{
		Success: true,
		Type:    reqType,
		Data:    data,
	})
}

func (s *Server) sendError(reqType string, err error) {
	resp := Response{
		Success: false,
		Type:    reqType,
		Error:   err.Error(),
	}

	var itemErr *stream.ItemError
	if errors.As(err, &itemErr) {
		index := itemErr.Index
		resp.Index = &index
	}

	var d *diag.Error
	if errors.As(err, &d) {
		resp.Diagnostic = d
	}

	s.encoder.Encode(resp)
}
