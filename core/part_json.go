package core

import (
	"encoding/json"
	"fmt"
)

// Part type discriminators used in the JSON form of a turn.
const (
	PartTypeText             = "text"
	PartTypeData             = "data"
	PartTypeFunctionCall     = "function_call"
	PartTypeFunctionResponse = "function_response"
)

type partJSON struct {
	Type             string            `json:"type"`
	Text             string            `json:"text,omitempty"`
	Data             map[string]any    `json:"data,omitempty"`
	FunctionCall     *FunctionCall     `json:"function_call,omitempty"`
	FunctionResponse *FunctionResponse `json:"function_response,omitempty"`
	Metadata         map[string]any    `json:"metadata,omitempty"`
}

func encodePart(p Part) (partJSON, error) {
	switch v := p.(type) {
	case TextPart:
		return partJSON{Type: PartTypeText, Text: v.Text, Metadata: v.Metadata}, nil
	case DataPart:
		return partJSON{Type: PartTypeData, Data: v.Data, Metadata: v.Metadata}, nil
	case FunctionCallPart:
		fc := v.FunctionCall
		return partJSON{Type: PartTypeFunctionCall, FunctionCall: &fc, Metadata: v.Metadata}, nil
	case FunctionResponsePart:
		fr := v.FunctionResponse
		return partJSON{Type: PartTypeFunctionResponse, FunctionResponse: &fr, Metadata: v.Metadata}, nil
	default:
		return partJSON{}, fmt.Errorf("unsupported part type %T", p)
	}
}

func (p partJSON) decode() (Part, error) {
	switch p.Type {
	case PartTypeText:
		return TextPart{Text: p.Text, Metadata: p.Metadata}, nil
	case PartTypeData:
		return DataPart{Data: p.Data, Metadata: p.Metadata}, nil
	case PartTypeFunctionCall:
		if p.FunctionCall == nil {
			return nil, fmt.Errorf("part %q without payload", p.Type)
		}
		return FunctionCallPart{FunctionCall: *p.FunctionCall, Metadata: p.Metadata}, nil
	case PartTypeFunctionResponse:
		if p.FunctionResponse == nil {
			return nil, fmt.Errorf("part %q without payload", p.Type)
		}
		return FunctionResponsePart{FunctionResponse: *p.FunctionResponse, Metadata: p.Metadata}, nil
	default:
		return nil, fmt.Errorf("unknown part type %q", p.Type)
	}
}

type turnAlias Turn

// MarshalJSON encodes parts with a "type" discriminator.
func (t Turn) MarshalJSON() ([]byte, error) {
	parts := make([]partJSON, 0, len(t.Parts))
	for _, p := range t.Parts {
		enc, err := encodePart(p)
		if err != nil {
			return nil, err
		}
		parts = append(parts, enc)
	}
	return json.Marshal(struct {
		turnAlias
		Parts []partJSON `json:"parts"`
	}{turnAlias: turnAlias(t), Parts: parts})
}

// UnmarshalJSON restores the concrete part types.
func (t *Turn) UnmarshalJSON(data []byte) error {
	var raw struct {
		turnAlias
		Parts []partJSON `json:"parts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*t = Turn(raw.turnAlias)
	t.Parts = make([]Part, 0, len(raw.Parts))
	for _, p := range raw.Parts {
		part, err := p.decode()
		if err != nil {
			return err
		}
		t.Parts = append(t.Parts, part)
	}
	return nil
}
