// command_test.go - dispatch geometry arithmetic tests
//
// License: GPLv3 or later

package pixelweave

import "testing"

func TestCeilDiv(t *testing.T) {
	cases := []struct{ a, b, want int }{
		{0, 16, 0},
		{1, 16, 1},
		{16, 16, 1},
		{17, 16, 2},
		{1920, 16, 120},
		{1921, 16, 121},
	}
	for _, c := range cases {
		if got := ceilDiv(c.a, c.b); got != c.want {
			t.Errorf("ceilDiv(%d,%d) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

// TestDispatchGroupCountCoversEveryOutputPixel mirrors command.go's
// dispatch group-count arithmetic: each invocation covers a 2x2 block
// of output pixels, and each workgroup covers dispatchSize invocations
// per axis. The group count must be large enough that every output
// pixel falls inside some invocation's block (spec.md §4.9's
// dispatch-coverage property), without ever dispatching a whole extra
// workgroup on either axis.
func TestDispatchGroupCountCoversEveryOutputPixel(t *testing.T) {
	sizes := []struct{ w, h int }{
		{1, 1}, {2, 2}, {3, 5}, {1920, 1080}, {17, 16 * 16 * 2},
	}
	for _, s := range sizes {
		blockCountX := ceilDiv(s.w, 2)
		blockCountY := ceilDiv(s.h, 2)
		groupCountX := ceilDiv(blockCountX, dispatchSize)
		groupCountY := ceilDiv(blockCountY, dispatchSize)

		invocationsX := groupCountX * dispatchSize
		invocationsY := groupCountY * dispatchSize
		coveredW := invocationsX * 2
		coveredH := invocationsY * 2

		if coveredW < s.w || coveredH < s.h {
			t.Errorf("size %dx%d: dispatch covers only %dx%d pixels", s.w, s.h, coveredW, coveredH)
		}
		// No over-dispatch: one fewer group on either axis must fail to
		// cover the frame, confirming the group count is the minimum.
		if (groupCountX-1)*dispatchSize*2 >= s.w && groupCountX > 0 {
			t.Errorf("size %dx%d: groupCountX=%d over-dispatches on X", s.w, s.h, groupCountX)
		}
		if (groupCountY-1)*dispatchSize*2 >= s.h && groupCountY > 0 {
			t.Errorf("size %dx%d: groupCountY=%d over-dispatches on Y", s.w, s.h, groupCountY)
		}
	}
}
