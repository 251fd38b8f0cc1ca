// package tasks implements the catalog pipelines: paste import with audit
// rows, scrobble feed import and search, and the sequence resequencer.
//
// Pipelines run to completion within a single invocation and process rows
// strictly sequentially; each row's exact-match lookup and sequence
// allocation must observe the effects of prior rows in the same batch.
package tasks
