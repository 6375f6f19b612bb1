package domain

import "errors"

// Sentinel errors matching the taxonomy in the fusion and specialist stages.
// Callers use errors.Is to branch on disposition; see cmd/forecast for the
// exit-code mapping.
var (
	// ErrInputValidation signals a required top-level input section is
	// missing. The request aborts.
	ErrInputValidation = errors.New("domain: required input section missing")

	// ErrSpectrumParse signals a buoy spectrum file failed to parse.
	// Non-fatal: callers fall back to the single-component event path.
	ErrSpectrumParse = errors.New("domain: spectrum parse failed")

	// ErrLLMFormat signals a vision-LLM response did not parse as the
	// expected JSON shape. Non-fatal: callers fall back to an empty
	// structured payload and still attempt a narrative.
	ErrLLMFormat = errors.New("domain: llm response format invalid")

	// ErrEmptyLLMResponse signals a GenerateText call returned no content.
	// Fatal to the specialist call that issued it.
	ErrEmptyLLMResponse = errors.New("domain: empty llm response")

	// ErrInsufficientSpecialists signals fewer than the configured minimum
	// number of specialists cleared the confidence floor. Fatal to the
	// forecast request.
	ErrInsufficientSpecialists = errors.New("domain: insufficient specialists")

	// ErrLLMUnavailable signals a GenerateText call failed after
	// exhausting its retry budget. Fatal.
	ErrLLMUnavailable = errors.New("domain: llm unavailable")
)
