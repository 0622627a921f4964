//go:build !linux && !tinygo

package hal

import "stepdrive-go/errcode"

// ChipFactory is only available on Linux.
type ChipFactory struct{}

func NewChipFactory(string) *ChipFactory { return &ChipFactory{} }

func (*ChipFactory) ByNumber(int) (GPIOPin, bool) { return nil, false }

func (*ChipFactory) Close() error { return errcode.Unsupported }
