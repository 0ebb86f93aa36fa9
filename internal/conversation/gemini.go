package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/consultorio-ai/citabot/internal/retry"
)

// systemInstructions encodes the booking rules for the practice. The model
// must answer conversationally until it has every required field, then emit a
// bare JSON object.
const systemInstructions = `Eres un asistente de citas para el consultorio del Doctor Lucas. Tu única función es agendar citas.

Reglas de agendamiento:
- Consultas en el consultorio: Lunes a viernes, de 8 AM a 11 AM. Costo: $25.
- Consultas a domicilio: Lunes a viernes, de 3 PM a 7 PM. Costo: $30.

Si el cliente menciona que quiere pagar por adelantado, pídele el código de referencia de la transferencia o pago móvil.

Para agendar una cita, necesitas el nombre completo, número de teléfono, fecha, y hora.

**ATENCIÓN**: Solo debes responder con un objeto JSON si la conversación te ha proporcionado **todos** los siguientes datos: 'nombre', 'telefono', 'fecha' y 'hora'. La fecha debe estar en formato YYYY-MM-DD. Si falta alguno de estos datos, **NO** generes el JSON y continúa la conversación de forma natural para solicitarlos. No incluyas ningún otro texto o puntuación antes o después del JSON.

Si el cliente envía una referencia de pago en un mensaje posterior a haber agendado su cita, debes responder preguntando nuevamente su nombre para buscar el registro y confirmarlo. Luego, cuando el cliente envíe su nombre junto a la referencia de pago, debes devolver un objeto JSON con los campos 'nombre', 'telefono' y 'referenciaPago', dejando los demás campos vacíos. Esto servirá para actualizar el registro del cliente en la base de datos.

No respondas a preguntas médicas, de facturación o de otro tipo que no sean agendar.`

// ModelClient issues one completion over a conversation history. An empty
// returned text with a nil error means the backend produced no usable
// candidates.
type ModelClient interface {
	Generate(ctx context.Context, history []Entry) (string, error)
}

// GeminiConfig carries the model parameters for a GeminiClient.
type GeminiConfig struct {
	APIKey        string
	ModelID       string
	Temperature   float32
	MaxTokens     int32
	EnforceSchema bool
}

// GeminiClient implements ModelClient using Google's Gemini API.
type GeminiClient struct {
	client        *genai.Client
	modelID       string
	temperature   float32
	maxTokens     int32
	enforceSchema bool
}

// draftSchema constrains structured replies to the appointment draft shape.
var draftSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"nombre":         {Type: genai.TypeString},
		"telefono":       {Type: genai.TypeString},
		"fecha":          {Type: genai.TypeString, Description: "YYYY-MM-DD"},
		"hora":           {Type: genai.TypeString},
		"referenciaPago": {Type: genai.TypeString},
		"tipoCita":       {Type: genai.TypeString},
	},
	Required: []string{"nombre", "telefono", "fecha", "hora"},
}

// NewGeminiClient creates a Gemini-backed model client.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("conversation: gemini api key is required")
	}
	if strings.TrimSpace(cfg.ModelID) == "" {
		cfg.ModelID = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client:        client,
		modelID:       cfg.ModelID,
		temperature:   cfg.Temperature,
		maxTokens:     cfg.MaxTokens,
		enforceSchema: cfg.EnforceSchema,
	}, nil
}

// Generate sends the history to Gemini and returns the raw reply text. Rate
// limiting by the backend is surfaced as a retryable error; an exhausted or
// otherwise failed call is the caller's problem.
func (c *GeminiClient) Generate(ctx context.Context, history []Entry) (string, error) {
	if len(history) == 0 {
		return "", errors.New("conversation: gemini requires at least one message")
	}

	model := c.client.GenerativeModel(c.modelID)
	model.SetTemperature(c.temperature)
	if c.maxTokens > 0 {
		model.SetMaxOutputTokens(c.maxTokens)
	}
	model.SystemInstruction = genai.NewUserContent(genai.Text(systemInstructions))
	if c.enforceSchema {
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = draftSchema
	}

	cs := model.StartChat()
	for _, entry := range history[:len(history)-1] {
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			continue
		}
		cs.History = append(cs.History, &genai.Content{
			Role:  entry.Role,
			Parts: []genai.Part{genai.Text(text)},
		})
	}

	last := history[len(history)-1]
	resp, err := cs.SendMessage(ctx, genai.Text(last.Text))
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 429 {
			return "", retry.RateLimited(fmt.Errorf("conversation: gemini completion: %w", err))
		}
		return "", fmt.Errorf("conversation: gemini completion failed: %w", err)
	}

	// No candidates or an empty parts list is a valid "nothing to say"
	// response, not an error.
	if len(resp.Candidates) == 0 {
		return "", nil
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", nil
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return text.String(), nil
}

// Close releases resources held by the underlying client.
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
