package xref

import (
	"fmt"
	"slices"
)

// Frame is one in-flight deferred property evaluation.
type Frame struct {
	Property        string
	UID             string
	ReferencingFile string
	RootFile        string
}

func (f Frame) String() string {
	if f.ReferencingFile == "" {
		return fmt.Sprintf("%s@%s", f.Property, f.UID)
	}
	return fmt.Sprintf("%s@%s (%s)", f.Property, f.UID, f.ReferencingFile)
}

// ResolutionContext carries the state of one resolution request: the page it
// originates from and the stack of property evaluations in progress. A context
// must not be shared between goroutines; create one per rendered page.
type ResolutionContext struct {
	rootFile string
	stack    []Frame
}

// NewResolutionContext returns a context for resolutions triggered by rootFile.
func NewResolutionContext(rootFile string) *ResolutionContext {
	return &ResolutionContext{rootFile: rootFile}
}

// RootFile returns the file the request originates from.
func (c *ResolutionContext) RootFile() string {
	return c.rootFile
}

// Depth returns the number of evaluations in progress.
func (c *ResolutionContext) Depth() int {
	return len(c.stack)
}

// push enters an evaluation of property on uid. Re-entering a pair that is
// already on the stack is a cycle.
func (c *ResolutionContext) push(property, uid, referencingFile string) error {
	f := Frame{Property: property, UID: uid, ReferencingFile: referencingFile, RootFile: c.rootFile}
	for i, prev := range c.stack {
		if prev.Property == property && prev.UID == uid {
			chain := append(slices.Clone(c.stack[i:]), f)
			return circularError(chain)
		}
	}
	c.stack = append(c.stack, f)
	return nil
}

func (c *ResolutionContext) pop() {
	c.stack = c.stack[:len(c.stack)-1]
}
