package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

type VisionVerdict struct {
	IsHumanFace bool    `json:"is_human_face"`
	Confidence  float64 `json:"confidence"`
	Reason      string  `json:"reason"`
}

// Valid applies the acceptance rule for avatar candidates.
func (v VisionVerdict) Valid() bool {
	return v.IsHumanFace && v.Confidence >= 0.6
}

const visionPrompt = `Analyze this image and determine if it contains a human face.
Return a JSON object with these keys:
- "is_human_face": boolean (true if a clear human face is present)
- "confidence": float (0.0 to 1.0)
- "reason": string (short explanation)`

// VerifyAvatar asks the vision model whether the image is a usable profile
// photo of a person. A non-empty name is added as a hint so the model favors
// that person's headshot over other faces on the page.
func (c *Client) VerifyAvatar(ctx context.Context, image []byte, name string) (VisionVerdict, error) {
	if !c.Enabled() {
		return VisionVerdict{}, fmt.Errorf("llm disabled")
	}

	prompt := visionPrompt
	if name != "" {
		prompt += fmt.Sprintf("\nThe image should be a profile photo of %s.", name)
	}

	b64 := base64.StdEncoding.EncodeToString(image)
	text, err := c.chat(ctx, c.visionModel, "", prompt, []string{b64}, true, map[string]any{
		"temperature": 0.1,
		"num_predict": 128,
	})
	if err != nil {
		return VisionVerdict{}, err
	}

	var v VisionVerdict
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return VisionVerdict{}, fmt.Errorf("parse vision output: %w", err)
	}
	return v, nil
}
