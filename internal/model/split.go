package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// ErrTooFewPerClass is returned when a class has fewer than two members and
// so cannot appear on both sides of a stratified split.
var ErrTooFewPerClass = errors.New("the least populated class has only 1 member")

// StratifiedSplit shuffles row indices and splits them into train and test
// sets so that each label keeps roughly its overall share in both. The test
// set has ceil(testSize*n) rows.
func StratifiedSplit(y []int, testSize float64, seed uint64) (train, test []int, err error) {
	n := len(y)
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size %v must be in (0,1)", testSize)
	}

	byClass := make(map[int][]int)
	for i, v := range y {
		byClass[v] = append(byClass[v], i)
	}
	classes := make([]int, 0, len(byClass))
	for c, idx := range byClass {
		if len(idx) < 2 {
			return nil, nil, ErrTooFewPerClass
		}
		classes = append(classes, c)
	}
	sort.Ints(classes)

	nTest := int(math.Ceil(testSize * float64(n)))
	nTrain := n - nTest
	if nTest < len(classes) || nTrain < len(classes) {
		return nil, nil, fmt.Errorf("split of %d rows cannot hold %d classes on each side", n, len(classes))
	}

	// Largest-remainder allocation of test rows across classes.
	alloc := make([]int, len(classes))
	type rem struct {
		class int
		frac  float64
	}
	rems := make([]rem, len(classes))
	given := 0
	for i, c := range classes {
		exact := float64(nTest) * float64(len(byClass[c])) / float64(n)
		alloc[i] = int(math.Floor(exact))
		if alloc[i] < 1 {
			alloc[i] = 1
		}
		if alloc[i] > len(byClass[c])-1 {
			alloc[i] = len(byClass[c]) - 1
		}
		given += alloc[i]
		rems[i] = rem{i, exact - math.Floor(exact)}
	}
	sort.SliceStable(rems, func(a, b int) bool { return rems[a].frac > rems[b].frac })
	for given < nTest {
		moved := false
		for _, r := range rems {
			if given == nTest {
				break
			}
			if alloc[r.class] < len(byClass[classes[r.class]])-1 {
				alloc[r.class]++
				given++
				moved = true
			}
		}
		if !moved {
			break
		}
	}
	for given > nTest {
		moved := false
		for i := len(rems) - 1; i >= 0 && given > nTest; i-- {
			if alloc[rems[i].class] > 1 {
				alloc[rems[i].class]--
				given--
				moved = true
			}
		}
		if !moved {
			break
		}
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for i, c := range classes {
		idx := append([]int(nil), byClass[c]...)
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		test = append(test, idx[:alloc[i]]...)
		train = append(train, idx[alloc[i]:]...)
	}
	rng.Shuffle(len(train), func(a, b int) { train[a], train[b] = train[b], train[a] })
	rng.Shuffle(len(test), func(a, b int) { test[a], test[b] = test[b], test[a] })
	return train, test, nil
}
