package matrix

// poisonValue is written into elements that a correct lower-triangle
// consumer must never read. 42 is arbitrary but recognizable in a dump.
const poisonValue = 42.0

// PoisonUpper overwrites every element strictly above the global
// diagonal with a sentinel value, on whichever rank owns it. Operations
// documented to read only the lower triangle (InvCholesky, Eigh, the
// symmetric Multiply accumulation) must give identical results on a
// poisoned matrix; validation harnesses use this to catch accidental
// upper-triangle reads.
func (a *Matrix[T]) PoisonUpper() {
	lm, ln := a.LocalShape()
	for i := 0; i < lm; i++ {
		gi := a.layout.GlobalRow(i)
		for j := 0; j < ln; j++ {
			if a.layout.GlobalCol(j) > gi {
				a.data[i*ln+j] = scalarOf[T](poisonValue)
			}
		}
	}
}
