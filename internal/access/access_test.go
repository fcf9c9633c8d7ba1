package access_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/rahat-dashboard/internal/access"
)

var _ = Describe("Path matcher", func() {
	DescribeTable("Match",
		func(path, pattern string, expected bool) {
			Expect(access.Match(path, pattern)).To(Equal(expected))
		},
		Entry("wildcard matches one segment", "/cases/abc123", "/cases/[id]", true),
		Entry("wildcard does not span segments", "/cases/abc/close", "/cases/[id]", false),
		Entry("wildcard followed by literal", "/cases/abc/close", "/cases/[id]/close", true),
		Entry("exact literal", "/x", "/x", true),
		Entry("different literal", "/x", "/y", false),
		Entry("no prefix match", "/cases/abc", "/cases", false),
		Entry("empty segment is not a match", "/cases/", "/cases/[id]", false),
		Entry("regex characters are literal", "/casesX", "/cases.", false),
		Entry("unbalanced bracket does not panic", "/a", "/[", false),
		Entry("pattern equal to path with brackets", "/cases/[id]", "/cases/[id]", true),
	)

	Describe("ParsePattern", func() {
		It("should reject relative patterns", func() {
			_, err := access.ParsePattern("cases")
			Expect(err).To(MatchError(access.ErrInvalidPattern))
		})

		It("should reject more than one wildcard", func() {
			_, err := access.ParsePattern("/cases/[id]/docs/[id]")
			Expect(err).To(MatchError(access.ErrInvalidPattern))
		})

		It("should reject a wildcard glued to literal text", func() {
			_, err := access.ParsePattern("/cases/x[id]")
			Expect(err).To(MatchError(access.ErrInvalidPattern))
		})

		It("should compile a valid pattern", func() {
			p, err := access.ParsePattern("/cases/[id]/close")
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Matches("/cases/42/close")).To(BeTrue())
			Expect(p.String()).To(Equal("/cases/[id]/close"))
		})
	})
})

var _ = Describe("Role access table", func() {
	var table *access.Table

	BeforeEach(func() {
		table = access.DefaultTable()
	})

	It("should deny tehsildar the all-cases page", func() {
		Expect(table.IsAllowed("tehsildar", "/cases")).To(BeFalse())
		Expect(table.IsAllowed("tehsildar", "/ready-to-close")).To(BeTrue())
		Expect(table.IsAllowed("tehsildar", "/cases/abc/close")).To(BeTrue())
	})

	It("should allow collector every collector page", func() {
		for _, path := range []string{"/", "/overview", "/cases", "/admin", "/cases/1", "/cases/1/close"} {
			Expect(table.IsAllowed("collector", path)).To(BeTrue(), path)
		}
		Expect(table.IsAllowed("collector", "/ready-to-close")).To(BeFalse())
	})

	It("should give unknown roles only home and case detail", func() {
		for _, role := range []string{"sdm", "oic", "admin", "Collector", "nonsense"} {
			Expect(table.IsAllowed(role, "/")).To(BeTrue(), role)
			Expect(table.IsAllowed(role, "/cases/abc")).To(BeTrue(), role)
			Expect(table.IsAllowed(role, "/cases")).To(BeFalse(), role)
			Expect(table.IsAllowed(role, "/cases/abc/close")).To(BeFalse(), role)
			Expect(table.IsAllowed(role, "/admin")).To(BeFalse(), role)
		}
	})

	It("should allow an empty role nothing", func() {
		for _, path := range []string{"/", "/overview", "/cases", "/cases/abc", "/admin"} {
			Expect(table.IsAllowed("", path)).To(BeFalse(), path)
		}
		Expect(table.AllowedPatterns("")).To(BeEmpty())
	})

	It("should be deterministic and never panic for arbitrary input", func() {
		inputs := []string{"", "/", "//", "[id]", "/cases/[id]", "\x00", "/cases/\n", "((", "/admin?x=1"}
		for _, role := range inputs {
			for _, path := range inputs {
				first := table.IsAllowed(role, path)
				Expect(func() { table.IsAllowed(role, path) }).NotTo(Panic())
				Expect(table.IsAllowed(role, path)).To(Equal(first))
			}
		}
	})

	It("should report the configured patterns", func() {
		Expect(table.AllowedPatterns("tehsildar")).To(Equal([]string{"/", "/ready-to-close", "/cases/[id]", "/cases/[id]/close"}))
		Expect(table.AllowedPatterns("who")).To(Equal([]string{"/", "/cases/[id]"}))
		Expect(table.ConfiguredRoles()).To(Equal([]access.RahatRole{access.RoleCollector, access.RoleTehsildar}))
	})

	Context("when constructing a custom table", func() {
		It("should reject unknown roles", func() {
			_, err := access.NewTable(access.Policy{"colector": {"/"}}, access.DefaultFallback())
			Expect(err).To(MatchError(access.ErrUnknownRole))
		})

		It("should reject bad patterns", func() {
			_, err := access.NewTable(access.Policy{access.RoleSDM: {"no-slash"}}, nil)
			Expect(err).To(MatchError(access.ErrInvalidPattern))
		})

		It("should panic from MustNewTable on error", func() {
			Expect(func() { access.MustNewTable(nil, []string{"bad"}) }).To(Panic())
		})
	})
})

var _ = Describe("Gates", func() {
	It("should reproduce the admin-page gate", func() {
		Expect(access.AdminOnly.Allows("admin")).To(BeTrue())
		Expect(access.AdminOnly.Allows("collector")).To(BeTrue())
		Expect(access.AdminOnly.Allows("tehsildar")).To(BeFalse())
	})

	It("should reproduce the collector-page gate", func() {
		Expect(access.CollectorOnly.Roles()).To(ConsistOf(access.RoleCollector, access.RoleAdmin))
		Expect(access.CollectorOnly.Allows("sdm")).To(BeFalse())
	})

	It("should reproduce the tehsildar-page gate", func() {
		Expect(access.TehsildarOnly.Roles()).To(ConsistOf(access.RoleTehsildar, access.RoleCollector, access.RoleAdmin))
		Expect(access.TehsildarOnly.Allows("")).To(BeFalse())
	})

	It("should let everybody through an empty gate", func() {
		Expect(access.NewGate("open").Allows("")).To(BeTrue())
	})
})

var _ = Describe("Roles", func() {
	It("should parse known roles and reject the rest", func() {
		r, err := access.ParseRahatRole("thana-incharge")
		Expect(err).NotTo(HaveOccurred())
		Expect(r).To(Equal(access.RoleThanaIncharge))

		_, err = access.ParseRahatRole("thana_incharge")
		Expect(err).To(MatchError(access.ErrUnknownRole))
	})

	It("should list the seven workflow roles", func() {
		Expect(access.Roles()).To(HaveLen(7))
		Expect(access.Roles()).NotTo(ContainElement(access.RoleAdmin))
	})
})
