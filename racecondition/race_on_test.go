//go:build race

package racecondition_test

const raceEnabled = true
