package bill

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Settle", func() {
	var (
		receipt     Receipt
		assignments Assignments
		settlement  Settlement
	)

	BeforeEach(func() {
		receipt = Receipt{
			Items: []Item{
				{ID: "1", Name: "Burger", Price: 10, Quantity: 1},
				{ID: "2", Name: "Fries", Price: 6, Quantity: 1},
			},
			Totals: Totals{Subtotal: 16, Tax: 1.6, Tip: 3.2, Total: 20.8, Currency: "$"},
		}
		assignments = NewAssignments(receipt)
	})

	JustBeforeEach(func() {
		settlement = Settle(receipt, assignments)
	})

	When("one item is solo and one is shared", func() {
		BeforeEach(func() {
			assignments = assignments.Apply([]Action{
				{ItemIDs: []string{"1"}, People: []string{"Tom"}, Op: OpAssign},
				{ItemIDs: []string{"2"}, People: []string{"Tom", "Ana"}, Op: OpAssign},
			})
		})

		It("splits the shared item equally", func() {
			Expect(settlement.People).To(HaveLen(2))
			Expect(settlement.People[0].Subtotal).To(BeNumerically("~", 13, 1e-9))
			Expect(settlement.People[1].Subtotal).To(BeNumerically("~", 3, 1e-9))
		})

		It("orders people by first appearance in receipt order", func() {
			Expect(settlement.People[0].Name).To(Equal("Tom"))
			Expect(settlement.People[1].Name).To(Equal("Ana"))
		})

		It("distributes tax proportionally to subtotal share", func() {
			Expect(settlement.People[0].Tax).To(BeNumerically("~", 1.3, 1e-9))
			Expect(settlement.People[1].Tax).To(BeNumerically("~", 0.3, 1e-9))
		})

		It("distributes tip proportionally to subtotal share", func() {
			Expect(settlement.People[0].Tip).To(BeNumerically("~", 2.6, 1e-9))
			Expect(settlement.People[1].Tip).To(BeNumerically("~", 0.6, 1e-9))
		})

		It("totals subtotal plus tax plus tip per person", func() {
			Expect(settlement.People[0].Total).To(BeNumerically("~", 16.9, 1e-9))
			Expect(settlement.People[1].Total).To(BeNumerically("~", 3.9, 1e-9))
		})

		It("leaves nothing unassigned", func() {
			Expect(settlement.Unassigned).To(BeEmpty())
		})

		It("lists the shared item for every assignee", func() {
			Expect(settlement.People[0].Items).To(HaveLen(2))
			Expect(settlement.People[1].Items).To(HaveLen(1))
			Expect(settlement.People[1].Items[0].ID).To(Equal("2"))
		})

		It("reports the full subtotal as assigned", func() {
			Expect(settlement.AssignedSubtotal).To(BeNumerically("~", 16, 1e-9))
		})
	})

	When("an item is split across many people", func() {
		BeforeEach(func() {
			assignments = assignments.Apply([]Action{
				{ItemIDs: []string{"1"}, People: []string{"A", "B", "C"}, Op: OpAssign},
			})
		})

		It("conserves the item price across the shares", func() {
			var sum float64
			for _, p := range settlement.People {
				sum += p.Subtotal
			}
			Expect(sum).To(BeNumerically("~", 10, 1e-9))
		})
	})

	When("nothing is assigned", func() {
		It("reports every item as unassigned, in receipt order", func() {
			Expect(settlement.People).To(BeEmpty())
			Expect(settlement.Unassigned).To(HaveLen(2))
			Expect(settlement.Unassigned[0].ID).To(Equal("1"))
			Expect(settlement.Unassigned[1].ID).To(Equal("2"))
		})
	})

	When("some items remain unassigned", func() {
		BeforeEach(func() {
			assignments = assignments.Apply([]Action{
				{ItemIDs: []string{"2"}, People: []string{"Ana"}, Op: OpAssign},
			})
		})

		It("keeps the unassigned item out of every subtotal", func() {
			Expect(settlement.People).To(HaveLen(1))
			Expect(settlement.People[0].Subtotal).To(BeNumerically("~", 6, 1e-9))
		})

		It("still normalizes tax against the receipt subtotal", func() {
			// 1.6 * (6/16): the gap to the receipt total is reported, not
			// redistributed.
			Expect(settlement.People[0].Tax).To(BeNumerically("~", 0.6, 1e-9))
			Expect(settlement.AssignedSubtotal).To(BeNumerically("~", 6, 1e-9))
		})
	})

	When("the receipt subtotal is zero", func() {
		BeforeEach(func() {
			receipt.Totals = Totals{Subtotal: 0, Tax: 5, Tip: 5, Total: 10}
			assignments = assignments.Apply([]Action{
				{ItemIDs: []string{"1"}, People: []string{"Tom"}, Op: OpAssign},
			})
		})

		It("gives everyone zero tax and tip", func() {
			Expect(settlement.People[0].Tax).To(BeZero())
			Expect(settlement.People[0].Tip).To(BeZero())
			Expect(settlement.People[0].Total).To(BeNumerically("~", 10, 1e-9))
		})
	})

	When("assignments reference ids not on the receipt", func() {
		BeforeEach(func() {
			assignments = assignments.Apply([]Action{
				{ItemIDs: []string{"99"}, People: []string{"Tom"}, Op: OpAssign},
			})
		})

		It("never surfaces the stray id", func() {
			Expect(settlement.People).To(BeEmpty())
			Expect(settlement.Unassigned).To(HaveLen(2))
		})
	})
})
