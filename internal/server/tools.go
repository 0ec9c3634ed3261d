// internal/server/tools.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"wellness-log/internal/models"
)

var errInvalidParams = errors.New("invalid parameters")

type toolHandler func(ctx context.Context, req *protocol.CallToolRequest) (interface{}, error)

type AnalyzeMealParams struct {
	Description string `json:"description" description:"Free-text description of the meal eaten"`
}

type RemoveMealParams struct {
	ID string `json:"id" description:"Identifier of the meal to remove"`
}

type AddWaterParams struct {
	AmountMl int `json:"amountMl" description:"Volume drunk in milliliters"`
}

type SendChatParams struct {
	Text string `json:"text" description:"Message for the support companion"`
}

type JournalContentParams struct {
	Content string `json:"content" description:"Journal entry text"`
}

type SaveJournalEntryParams struct {
	Content      string   `json:"content" description:"Journal entry text"`
	Title        string   `json:"title,omitempty" description:"Title from an earlier metadata call"`
	Tags         []string `json:"tags,omitempty" description:"Tags from an earlier metadata call"`
	AutoMetadata *bool    `json:"autoMetadata,omitempty" description:"Generate title and tags when none are given (default true)"`
}

type GetViewParams struct {
	View string `json:"view,omitempty" description:"overview, diet, hydration, support-chat or journal"`
}

// extractParams safely extracts parameters from the request arguments
func extractParams(req *protocol.CallToolRequest, target interface{}) error {
	jsonBytes, err := json.Marshal(req.Arguments)
	if err != nil {
		return fmt.Errorf("%w: %v", errInvalidParams, err)
	}
	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return fmt.Errorf("%w: %v", errInvalidParams, err)
	}
	return nil
}

func (s *WellnessServer) tools() map[string]toolHandler {
	return map[string]toolHandler{
		"analyze_meal":              s.handleAnalyzeMeal,
		"remove_meal":               s.handleRemoveMeal,
		"add_water":                 s.handleAddWater,
		"undo_water":                s.handleUndoWater,
		"send_chat":                 s.handleSendChat,
		"polish_journal":            s.handlePolishJournal,
		"generate_journal_metadata": s.handleGenerateJournalMetadata,
		"save_journal_entry":        s.handleSaveJournalEntry,
		"get_view":                  s.handleGetView,
	}
}

// handleAnalyzeMeal estimates nutrition for a description and logs the meal.
func (s *WellnessServer) handleAnalyzeMeal(ctx context.Context, req *protocol.CallToolRequest) (interface{}, error) {
	var params AnalyzeMealParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	meal, err := s.tracker.AnalyzeAndAddMeal(ctx, params.Description)
	if err != nil {
		return nil, &inputError{err: err, input: params.Description}
	}
	return meal, nil
}

func (s *WellnessServer) handleRemoveMeal(ctx context.Context, req *protocol.CallToolRequest) (interface{}, error) {
	var params RemoveMealParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if params.ID == "" {
		return nil, fmt.Errorf("%w: meal id is required", errInvalidParams)
	}
	return s.tracker.RemoveMeal(ctx, params.ID), nil
}

func (s *WellnessServer) handleAddWater(ctx context.Context, req *protocol.CallToolRequest) (interface{}, error) {
	var params AddWaterParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	return s.tracker.AddWater(ctx, params.AmountMl)
}

func (s *WellnessServer) handleUndoWater(ctx context.Context, req *protocol.CallToolRequest) (interface{}, error) {
	return s.tracker.UndoWater(ctx), nil
}

func (s *WellnessServer) handleSendChat(ctx context.Context, req *protocol.CallToolRequest) (interface{}, error) {
	var params SendChatParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	return s.tracker.SendChat(ctx, params.Text)
}

func (s *WellnessServer) handlePolishJournal(ctx context.Context, req *protocol.CallToolRequest) (interface{}, error) {
	var params JournalContentParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	content, err := s.tracker.PolishJournal(ctx, params.Content)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"content":  content,
		"polished": content != params.Content,
	}, nil
}

func (s *WellnessServer) handleGenerateJournalMetadata(ctx context.Context, req *protocol.CallToolRequest) (interface{}, error) {
	var params JournalContentParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	meta, generated, err := s.tracker.GenerateJournalMetadata(ctx, params.Content)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"title":     meta.Title,
		"tags":      meta.Tags,
		"generated": generated,
	}, nil
}

func (s *WellnessServer) handleSaveJournalEntry(ctx context.Context, req *protocol.CallToolRequest) (interface{}, error) {
	var params SaveJournalEntryParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	draft := models.JournalDraft{Content: params.Content, AutoMetadata: true}
	if params.AutoMetadata != nil {
		draft.AutoMetadata = *params.AutoMetadata
	}
	if params.Title != "" || len(params.Tags) > 0 {
		draft.Metadata = &models.JournalMetadata{Title: params.Title, Tags: params.Tags}
	}
	return s.tracker.SaveJournalEntry(ctx, draft)
}

func (s *WellnessServer) handleGetView(ctx context.Context, req *protocol.CallToolRequest) (interface{}, error) {
	var params GetViewParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	return s.tracker.Render(params.View), nil
}

// inputError carries the submitted text back to the client with the failure.
type inputError struct {
	err   error
	input string
}

func (e *inputError) Error() string { return e.err.Error() }
func (e *inputError) Unwrap() error { return e.err }

func (s *WellnessServer) writeToolError(w http.ResponseWriter, tool string, err error) {
	status, message := statusFor(err)
	var input string
	var ie *inputError
	if errors.As(err, &ie) {
		input = ie.input
	}

	ev := s.log.Warn()
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		ev = s.log.Error()
	}
	ev.Err(err).Str("tool", tool).Int("status", status).Msg("tool call failed")
	writeError(w, status, message, input)
}
