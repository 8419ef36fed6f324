package world

import (
	"errors"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestParseAlignment(t *testing.T) {
	convey.Convey("Given alignment input from a join request", t, func() {
		convey.Convey("When the value is blank", func() {
			a, err := ParseAlignment("   ")
			convey.So(err, convey.ShouldBeNil)
			convey.So(a, convey.ShouldEqual, AlignmentUnset)
		})

		convey.Convey("When the value differs only in case, spacing or separators", func() {
			for _, in := range []string{"Tyrannical", " TYRANNICAL ", "tyrannical"} {
				a, err := ParseAlignment(in)
				convey.So(err, convey.ShouldBeNil)
				convey.So(a, convey.ShouldEqual, AlignmentTyrannical)
			}
			for _, in := range []string{"corrupt-chancellor", "Corrupt Chancellor", "corrupt_chancellor"} {
				a, err := ParseAlignment(in)
				convey.So(err, convey.ShouldBeNil)
				convey.So(a, convey.ShouldEqual, AlignmentCorruptChancellor)
			}
		})

		convey.Convey("When the value is unknown", func() {
			_, err := ParseAlignment("chaotic")
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errors.Is(err, ErrInvalidRequest), convey.ShouldBeTrue)
		})
	})
}

func TestStancePolicy(t *testing.T) {
	convey.Convey("Given the three alignments", t, func() {
		merciful := AlignmentMerciful.Stance()
		tyrannical := AlignmentTyrannical.Stance()
		corrupt := AlignmentCorruptChancellor.Stance()

		convey.Convey("Then instructions and clauses are pairwise distinct", func() {
			convey.So(merciful.Instruction, convey.ShouldNotEqual, tyrannical.Instruction)
			convey.So(merciful.Instruction, convey.ShouldNotEqual, corrupt.Instruction)
			convey.So(tyrannical.Instruction, convey.ShouldNotEqual, corrupt.Instruction)
			convey.So(merciful.Clause, convey.ShouldNotEqual, tyrannical.Clause)
			convey.So(merciful.Clause, convey.ShouldNotEqual, corrupt.Clause)
			convey.So(tyrannical.Clause, convey.ShouldNotEqual, corrupt.Clause)
		})

		convey.Convey("Then an unset alignment frames events mercifully", func() {
			convey.So(AlignmentUnset.Stance(), convey.ShouldResemble, merciful)
		})

		convey.Convey("Then the fallback narrative joins description and clause", func() {
			convey.So(AlignmentTyrannical.FallbackNarrative("King raises tax"),
				convey.ShouldEqual, "King raises tax — A show of strength; dissent will fade.")
		})
	})
}
