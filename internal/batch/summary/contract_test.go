package summary_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/edgecomet/loadstats/internal/batch/summary"
	"github.com/edgecomet/loadstats/internal/stats/classify"
	"github.com/edgecomet/loadstats/pkg/types"
)

var _ = Describe("Registered summarizers", func() {
	var strategies *summary.Strategies

	BeforeEach(func() {
		strategies = summary.DefaultStrategies()
	})

	for _, name := range []string{summary.ErrorsName, summary.TopErrorsBySamplerName} {
		name := name

		Context(name, func() {
			var consumer summary.Consumer

			BeforeEach(func() {
				var err error
				consumer, err = strategies.Lookup(name, summary.Options{
					Classify: classify.DefaultOptions(),
					Logger:   zap.NewNop(),
				})
				Expect(err).NotTo(HaveOccurred())
			})

			It("rejects samples before Start", func() {
				Expect(consumer.Consume(&types.Sample{Label: "a"})).To(MatchError(summary.ErrNotStarted))
			})

			It("rejects samples after Finish", func() {
				Expect(consumer.Start()).To(Succeed())
				Expect(consumer.Finish()).To(Succeed())
				Expect(consumer.Consume(&types.Sample{Label: "a"})).To(MatchError(summary.ErrFinished))
			})

			It("refuses to build a table while running", func() {
				Expect(consumer.Start()).To(Succeed())
				_, err := consumer.BuildTable()
				Expect(err).To(MatchError(summary.ErrNotFinished))
			})

			It("ignores empty groups completely", func() {
				Expect(consumer.Start()).To(Succeed())
				Expect(consumer.Consume(&types.Sample{
					Label:        "tx",
					ResponseCode: "500",
					GroupMarker:  true,
					EmptyGroup:   true,
				})).To(Succeed())
				Expect(consumer.Finish()).To(Succeed())

				tbl, err := consumer.BuildTable()
				Expect(err).NotTo(HaveOccurred())
				for _, row := range tbl.Rows {
					Expect(row[0].Str()).To(Equal(summary.TotalLabel))
					Expect(row[1].Int()).To(BeZero())
				}
			})

			It("names the table and keeps keyed rows in first-seen order", func() {
				Expect(consumer.Start()).To(Succeed())
				for _, s := range []*types.Sample{
					{Label: "z", ResponseCode: "503", ResponseMessage: "Unavailable"},
					{Label: "y", ResponseCode: "404", ResponseMessage: "Not Found"},
					{Label: "z", ResponseCode: "503", ResponseMessage: "Unavailable"},
				} {
					Expect(consumer.Consume(s)).To(Succeed())
				}
				Expect(consumer.Finish()).To(Succeed())

				tbl, err := consumer.BuildTable()
				Expect(err).NotTo(HaveOccurred())
				Expect(tbl.Name).To(Equal(name))
				Expect(len(tbl.Rows)).To(BeNumerically(">=", 2))
				first := tbl.Rows[0][0].Str()
				Expect(first).To(Or(Equal("z"), Equal("503/Unavailable")))
				Expect(tbl.Rows[0][1].Int()).To(BeEquivalentTo(2))
			})
		})
	}
})
