package analysis

// Backend mode identifiers. Every ReplayResult records which mode produced
// it so a simulated result can never pass for a real one.
const (
	ModeRemote    = "remote"
	ModeSimulated = "simulated"
)

// JSON schemas the remote backend's responses must satisfy before the engine
// accepts them.

const assessmentSchemaDef = `{
	"type": "object",
	"required": ["clause_id", "text", "risk_level"],
	"properties": {
		"clause_id": {"type": "string", "minLength": 1},
		"heading": {"type": "string"},
		"text": {"type": "string", "minLength": 1},
		"risk_level": {"enum": ["HIGH", "MEDIUM", "LOW"]},
		"rationale": {"type": "string"},
		"policy_refs": {"type": "array", "items": {"type": "string"}},
		"recommended_action": {"type": "string"},
		"impact_assessment": {"type": "string"}
	}
}`

const usageSchemaDef = `{
	"type": "object",
	"properties": {
		"tokens_in": {"type": "integer", "minimum": 0},
		"tokens_out": {"type": "integer", "minimum": 0},
		"cost_usd": {"type": "number", "minimum": 0},
		"model": {"type": "string"},
		"cache_hit": {"type": "boolean"}
	}
}`

const classifyResponseSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["assessments"],
	"properties": {
		"assessments": {"type": "array", "items": ` + assessmentSchemaDef + `},
		"usage": ` + usageSchemaDef + `
	}
}`

const assessResponseSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["assessment"],
	"properties": {
		"assessment": ` + assessmentSchemaDef + `,
		"usage": ` + usageSchemaDef + `
	}
}`

const proposalResponseSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["proposal"],
	"properties": {
		"proposal": {
			"type": "object",
			"required": ["clause_id", "proposed_text"],
			"properties": {
				"clause_id": {"type": "string", "minLength": 1},
				"original_text": {"type": "string"},
				"proposed_text": {"type": "string", "minLength": 1},
				"rationale": {"type": "string"}
			}
		},
		"usage": ` + usageSchemaDef + `
	}
}`
