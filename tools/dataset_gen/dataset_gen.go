package main

// dataset_gen.go generates a deterministic corpus of OptionMaps, used as the
// fixed test corpus a hash-collision test suite runs OptionMap.Hash over to
// verify zero collisions. It emits one line per generated map: the hash hex
// followed by its basis, method, charge, and multiplicity values (the
// convergence and frozen_core values are hashed but not printed), so a diff
// between two runs makes a regression immediately legible.
//
// Usage:
//   go run ./tools/dataset_gen -n 100000 -seed 42 -out corpus.txt
//
// Flags:
//   -n     number of option maps to generate (default 100000)
//   -seed  PRNG seed (default current time)
//   -out   output file (default stdout)
//
// © 2026 pulsar authors. MIT License.

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/pulsarchem/pulsar/pkg/options"
)

var (
	basisSets = []string{"sto-3g", "6-31g", "6-31g*", "cc-pvdz", "cc-pvtz", "def2-svp", "def2-tzvp"}
	methods   = []string{"hf", "mp2", "ccsd", "ccsd(t)", "dft-b3lyp", "dft-pbe0"}
)

func randomOptionMap(rnd *rand.Rand) *options.OptionMap {
	m := options.NewOptionMap()
	_ = m.Declare("basis", basisSets[0], false, "basis set", nil)
	_ = m.Declare("method", methods[0], false, "electronic structure method", nil)
	_ = m.Declare("charge", int64(0), false, "molecular charge", nil)
	_ = m.Declare("multiplicity", int64(1), false, "spin multiplicity", nil)
	_ = m.Declare("convergence", 1e-8, false, "SCF convergence threshold", nil)
	_ = m.Declare("frozen_core", true, false, "freeze core orbitals", nil)

	_ = m.Set("basis", basisSets[rnd.Intn(len(basisSets))])
	_ = m.Set("method", methods[rnd.Intn(len(methods))])
	_ = m.Set("charge", int64(rnd.Intn(5)-2))
	_ = m.Set("multiplicity", int64(rnd.Intn(3)+1))
	_ = m.Set("convergence", []float64{1e-6, 1e-8, 1e-10}[rnd.Intn(3)])
	_ = m.Set("frozen_core", rnd.Intn(2) == 0)
	return m
}

func main() {
	var (
		n       = flag.Int("n", 100_000, "number of option maps to generate")
		seedVal = flag.Int64("seed", time.Now().UnixNano(), "PRNG seed")
		outPath = flag.String("out", "", "output file (default stdout)")
	)
	flag.Parse()

	rnd := rand.New(rand.NewSource(*seedVal))

	var out *os.File
	var err error
	if *outPath == "" {
		out = os.Stdout
	} else {
		out, err = os.Create(*outPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "cannot create file:", err)
			os.Exit(1)
		}
		defer out.Close()
	}

	w := bufio.NewWriterSize(out, 1<<20)
	defer w.Flush()

	for i := 0; i < *n; i++ {
		m := randomOptionMap(rnd)
		h, err := m.Hash()
		if err != nil {
			fmt.Fprintln(os.Stderr, "hash:", err)
			os.Exit(1)
		}
		basis, _ := options.Get[string](m, "basis")
		method, _ := options.Get[string](m, "method")
		charge, _ := options.Get[int64](m, "charge")
		mult, _ := options.Get[int64](m, "multiplicity")
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", h.String(), basis, method, charge, mult)
	}
}
