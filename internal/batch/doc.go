// Package batch runs one pipeline stage over a filtered set of shots.
//
// A batch holds the board lock for its whole duration. It loads the board,
// selects every shot that matches the filter and passes the stage
// precondition, and fans the selected shots out to a bounded worker pool.
// Workers receive private copies and return outcomes; the scheduler applies
// successful outcomes to the board in completion order and saves the board
// exactly once at the end. One shot's failure never affects another shot.
//
// When the batch deadline passes or the caller cancels, shots still in flight
// or not yet started are reported as incomplete and keep their prior state.
package batch
