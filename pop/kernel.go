package pop

// A Mutant describes the daughter a mutation kernel chose. The kernel
// never mutates the population beyond registering a requested type; the
// engine commits the result.
type Mutant struct {
	Birth   float64
	MutProb float64
	Type    *CellType
	Mutated bool
}

// A MutationKernel chooses the type, birth rate, and mutation probability
// of a mutant daughter given the reproducing parent.
type MutationKernel interface {
	GenerateMutant(parent *CellType, birth, mutProb float64) (Mutant, error)
}

// A SexualKernel additionally derives children from two parents. Sexual
// populations call GenerateChild on every reproduction event.
type SexualKernel interface {
	MutationKernel
	GenerateChild(mother, father *CellType, birth, mutProb float64) (Mutant, error)
}
