// Evosim is a continuous-time stochastic simulator of structured
// branching processes over populations of discrete cells.
//
// Cells are grouped into types (genotypes) organised as a phylogenetic
// tree produced by mutation events, and within a type into clones, the
// maximal cohorts of cells sharing a per-cell birth rate. The engine
// advances an ordered sequence of birth and death events whose waiting
// times are exponential in the current aggregate rates, following the
// continuous-time Gillespie algorithm.
//
// The API is oriented around two capabilities: `pop.Model`, one runnable
// simulation under a scheduling policy (branching, Moran, synchronous
// update, passaging, or sexual reproduction), and `Observer`, a hook
// triple invoked around the event loop to record output. Mutation
// semantics are pluggable through `pop.MutationKernel`; the kernels
// themselves live in the mutate package. Configuration is read from the
// tab-separated dialect understood by the config package, and the
// evosim command ties the pieces together.
package evosim
