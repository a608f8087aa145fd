// Package schema provides the validation capability a reconciliation pass
// delegates to.
//
// A Validator turns a snapshot of user fields into a validated result or a
// *ValidationError listing every failing field. Three engines are provided:
// CUE definitions (CompileCUE, LoadCUEDir), JSON Schema documents
// (CompileJSONSchema) and Go structs reflected into JSON Schema (FromStruct).
// ValidatorFunc adapts arbitrary code.
//
// Compiled validators apply an UnknownKeys policy before the engine runs.
// Strip, the default, removes fields the schema does not declare, which is
// how legacy fields disappear from a record on its next save.
package schema
