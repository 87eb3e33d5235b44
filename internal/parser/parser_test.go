package parser

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestParser(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Parser Suite")
}

var _ = Describe("Parse", func() {
	var (
		p       *Parser
		rawText string
		fields  Fields
	)

	fixedNow := func() time.Time {
		return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	}

	BeforeEach(func() {
		p = NewWithClock(fixedNow)
	})

	JustBeforeEach(func() {
		fields = p.Parse(rawText)
	})

	When("parsing a typical Korean receipt", func() {
		BeforeEach(func() {
			rawText = "스타벅스 강남점\n서울시 강남구 테헤란로 1\n2024-03-15 14:30:25\n아메리카노 2 9,000\n합계 12,345원\n카드승인 99999"
		})

		It("extracts the store name from a merchant-indicator line", func() {
			Expect(fields.StoreName).NotTo(BeNil())
			Expect(*fields.StoreName).To(Equal("스타벅스 강남점"))
		})

		It("prefers the keyword-qualified amount over larger bare numbers", func() {
			Expect(fields.TotalAmount).NotTo(BeNil())
			Expect(*fields.TotalAmount).To(Equal(int64(12345)))
		})

		It("extracts the date", func() {
			Expect(fields.TransactionDate).NotTo(BeNil())
			Expect(*fields.TransactionDate).To(Equal("2024-03-15"))
		})

		It("captures the time verbatim", func() {
			Expect(fields.TransactionTime).NotTo(BeNil())
			Expect(*fields.TransactionTime).To(Equal("14:30:25"))
		})

		It("is deterministic", func() {
			Expect(p.Parse(rawText)).To(Equal(fields))
		})
	})

	When("the text is empty", func() {
		BeforeEach(func() {
			rawText = ""
		})

		It("yields no fields and no date fallback", func() {
			Expect(fields.StoreName).To(BeNil())
			Expect(fields.TotalAmount).To(BeNil())
			Expect(fields.TransactionDate).To(BeNil())
			Expect(fields.TransactionTime).To(BeNil())
		})
	})

	When("the text is whitespace only", func() {
		BeforeEach(func() {
			rawText = "  \n\t\n   "
		})

		It("yields no fields", func() {
			Expect(fields).To(Equal(Fields{}))
		})
	})

	Describe("store name", func() {
		When("a proprietor line precedes the merchant line", func() {
			BeforeEach(func() {
				rawText = "대표자: 김철수\n(주)이마트 역삼점\n2024-01-02"
			})

			It("skips the proprietor line", func() {
				Expect(fields.StoreName).NotTo(BeNil())
				Expect(*fields.StoreName).To(Equal("주이마트 역삼점"))
			})
		})

		When("a merchant label line is present", func() {
			BeforeEach(func() {
				rawText = "영수증\n가맹점명: GS25 서초타워\n2024-01-02"
			})

			It("uses the labeled line with the label removed", func() {
				Expect(fields.StoreName).NotTo(BeNil())
				Expect(*fields.StoreName).To(Equal("GS25 서초타워"))
			})
		})

		When("no indicator matches in the first five lines", func() {
			BeforeEach(func() {
				rawText = "Coffee*&^Bean!!\n2024-01-02\n합계 5,500"
			})

			It("falls back to the first line with symbols stripped", func() {
				Expect(fields.StoreName).NotTo(BeNil())
				Expect(*fields.StoreName).To(Equal("CoffeeBean"))
			})
		})
	})

	Describe("total amount", func() {
		When("only small numeric runs exist", func() {
			BeforeEach(func() {
				rawText = "메뉴 1\n수량 2\n번호 100"
			})

			It("never selects values of 100 or less via the fallback", func() {
				Expect(fields.TotalAmount).To(BeNil())
			})
		})

		When("no keyword qualifies an amount", func() {
			BeforeEach(func() {
				rawText = "가게\n내역 3,000\n내역 15,700\n내역 850"
			})

			It("takes the maximum surviving digit run", func() {
				Expect(fields.TotalAmount).NotTo(BeNil())
				Expect(*fields.TotalAmount).To(Equal(int64(15700)))
			})
		})

		When("the keyword uses a different total term", func() {
			BeforeEach(func() {
				rawText = "가게\n받을금액: 48,000\n포인트 99,999"
			})

			It("stops at the first keyword match", func() {
				Expect(fields.TotalAmount).NotTo(BeNil())
				Expect(*fields.TotalAmount).To(Equal(int64(48000)))
			})
		})
	})

	Describe("transaction date", func() {
		When("both a year-first and a month-first date are present", func() {
			BeforeEach(func() {
				rawText = "가게\n2024-03-15\n03/15/2024\n합계 1,000"
			})

			It("uses the first matching pattern in priority order", func() {
				Expect(*fields.TransactionDate).To(Equal("2024-03-15"))
			})
		})

		When("only a month-first date is present", func() {
			BeforeEach(func() {
				rawText = "가게\n03/15/2024"
			})

			It("reorders the groups", func() {
				Expect(*fields.TransactionDate).To(Equal("2024-03-15"))
			})
		})

		When("only a 2-digit year date is present", func() {
			BeforeEach(func() {
				rawText = "가게\n24/03/15"
			})

			It("expands the year into the 2000s", func() {
				Expect(*fields.TransactionDate).To(Equal("2024-03-15"))
			})
		})

		When("single-digit month and day appear", func() {
			BeforeEach(func() {
				rawText = "가게\n2024.3.5"
			})

			It("zero-pads the components", func() {
				Expect(*fields.TransactionDate).To(Equal("2024-03-05"))
			})
		})

		When("the matched year is implausible", func() {
			BeforeEach(func() {
				// 1111-22-33 fails the year-first rule; its tail 11-22-33 also
				// fails the 2-digit rule on the month check.
				rawText = "가게\n1111-22-33\n합계 9,000"
			})

			It("skips the rule instead of emitting a wrong format", func() {
				Expect(*fields.TransactionDate).To(Equal("2024-06-01"))
			})
		})

		When("no date-shaped substring exists", func() {
			BeforeEach(func() {
				rawText = "가게\n합계 12,000"
			})

			It("falls back to the current calendar date", func() {
				Expect(fields.TransactionDate).NotTo(BeNil())
				Expect(*fields.TransactionDate).To(Equal("2024-06-01"))
			})
		})
	})
})
