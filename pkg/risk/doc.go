// Package risk implements the risk scoring engine of the governance
// pipeline.
//
// Each exchange is scored by a fixed battery of detectors:
//
//   - Prompt injection: manipulation phrases in the prompt
//   - Unsafe content: hacking/malware/illegal-activity patterns in the
//     prompt and response
//   - Data leakage: structured sensitive patterns (SSN, card numbers,
//     credential markers) in the response
//   - Hallucination: hedge-word density and contradiction markers in the
//     response
//
// The overall risk score is the maximum of the detector sub-scores, a
// worst-case-dominant aggregation. The category is a monotonic step function
// of the score and confidence grows with the amount of corroborating
// evidence, capped at 0.95.
//
// The engine owns an append-only history of produced assessments used for
// trend reporting and for joining feedback entries during threshold
// retuning.
package risk
