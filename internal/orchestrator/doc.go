// Package orchestrator routes each request through the rule dispatcher,
// capability handlers, procedures and finally generation, and records the
// decision it made.
//
// Routing order for one request:
//
//  1. normalize the text (optional collaborator)
//  2. rule dispatcher; a non-delegate match is final
//  3. best capability handler at or above the threshold, plus a quality
//     badge for allow-listed categories
//  4. procedure match: parent and child tasks, first step run now
//  5. complexity check, then generation (with a task when complex)
//
// Every call to Handle or Advance emits one routing_decision event.
package orchestrator
