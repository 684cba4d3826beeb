// Package servicemanager is the core of the servicemanager application: a
// supervisor that keeps one child process running and talks to it through
// marker files.
//
// Mechanism of Operation
//
// Marker Files
//
// Every service has a notify base path. The supervisor asks the child to
// stop by creating <notify>.stop and to reload by creating <notify>.reload;
// the child acknowledges by deleting the file. Anyone can create the markers
// as well: a stop marker created by hand makes the supervisor restart the
// child, a reload marker created by the reload action asks the child to
// reload in place.
//
// Grace Budgets
//
// Once a request is made the child has the configured wait budget to act
// on it. A stop that isn't acted on in time ends in forced termination; a
// reload that isn't acknowledged in time turns into a stop request with a
// fresh budget.
//
// Run Loop
//
// The run loop is split in two. Machine is a pure transition function over
// State that turns observations into effects, and Loop performs those effects
// against the host: it spawns, polls, terminates and reaps the child and
// writes the pid file. The child is respawned whenever it exits on its own,
// until a stop is requested through a shutdown.Source.
//
// The pid file holds two lines, the supervisor's PID then the child's:
//
//    4120
//    4121
//
package servicemanager
