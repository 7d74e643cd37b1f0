// Package knowledge provides the static medication context that seeds
// the assistant's conversation.
package knowledge

import (
	"encoding/json"
	"fmt"
)

// MedicineContext is the structured document the assistant answers from.
// It is immutable for the lifetime of a call session.
type MedicineContext struct {
	Name              string `json:"name"`
	Form              string `json:"form"`
	Route             string `json:"route"`
	MealConfiguration string `json:"meal_configuration"`
	Time              string `json:"time"`
	DosageValue       int    `json:"dosage_value"`
	DosageUnit        string `json:"dosage_unit"`
}

// SystemPrompt frames the assistant's role and safety rules.
const SystemPrompt = "You are a friendly, concise medication reminder assistant. " +
	"Use the provided 'medicine' JSON to answer patient questions. " +
	"Always prioritize safety: do not provide medical advice beyond the medication label. " +
	"If asked about dose or timing, repeat the provided official values. " +
	"If user expresses severe symptoms, instruct them to seek urgent care."

// Store serves the fixed knowledge document. A per-patient lookup could
// implement the same method set without touching the orchestrator.
type Store struct {
	doc MedicineContext
}

// NewStore returns a store holding the default paracetamol document.
func NewStore() *Store {
	return &Store{
		doc: MedicineContext{
			Name:              "paracetamol",
			Form:              "tablet",
			Route:             "oral",
			MealConfiguration: "after meal",
			Time:              "08:00",
			DosageValue:       500,
			DosageUnit:        "mg",
		},
	}
}

// NewStoreWith returns a store holding a custom document.
func NewStoreWith(doc MedicineContext) *Store {
	return &Store{doc: doc}
}

// Context returns a copy of the knowledge document.
func (s *Store) Context() MedicineContext {
	return s.doc
}

// Instructions renders the full session instruction text: system prompt
// plus the medicine document as JSON.
func (s *Store) Instructions() string {
	data, err := json.Marshal(s.doc)
	if err != nil {
		// MedicineContext has no unmarshalable fields; this cannot happen.
		return SystemPrompt
	}
	return fmt.Sprintf("%s\n\nMedicine context: %s", SystemPrompt, data)
}

// Summary formats the document for logs and diagnostics.
func (s *Store) Summary() string {
	return fmt.Sprintf("%s %d%s %s, %s %s at %s",
		s.doc.Name, s.doc.DosageValue, s.doc.DosageUnit, s.doc.Form,
		s.doc.Route, s.doc.MealConfiguration, s.doc.Time)
}
