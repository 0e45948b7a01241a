package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/fsdevblog/groph-credits/internal/domain"
)

type CatalogTestSuite struct {
	suite.Suite
	catalog *Catalog
}

func TestCatalogSuite(t *testing.T) {
	suite.Run(t, new(CatalogTestSuite))
}

func (s *CatalogTestSuite) SetupTest() {
	s.catalog = New(Args{
		CustomMin: decimal.NewFromInt(100),
		CustomMax: decimal.NewFromInt(100000),
	})
}

func (s *CatalogTestSuite) TestPackages() {
	packages := s.catalog.Packages()
	s.Require().Len(packages, 5)

	// последним всегда идет "пакет" произвольной суммы.
	custom := packages[len(packages)-1]
	s.Equal(domain.PackageCustomID, custom.ID)
	s.True(custom.MinAmount.Equal(decimal.NewFromInt(100)))
	s.True(custom.MaxAmount.Equal(decimal.NewFromInt(100000)))
}

func (s *CatalogTestSuite) TestFindPackage() {
	pkg, err := s.catalog.FindPackage("pro")
	s.Require().NoError(err)
	s.True(pkg.BaseCredits.Equal(decimal.NewFromInt(2000)))

	_, err = s.catalog.FindPackage("nonexistent")
	s.Require().ErrorIs(err, domain.ErrRecordNotFound)
}

func (s *CatalogTestSuite) TestBonusFor() {
	cases := []struct {
		amount int64
		bonus  int64
	}{
		{amount: 100, bonus: 0},
		{amount: 499, bonus: 0},
		{amount: 500, bonus: 50},
		{amount: 999, bonus: 100}, // округление 99.9 -> 100
		{amount: 1000, bonus: 150},
		{amount: 1999, bonus: 300},
		{amount: 2000, bonus: 400},
		{amount: 4999, bonus: 1000},
		{amount: 5000, bonus: 1250},
		{amount: 50000, bonus: 12500},
	}

	for _, c := range cases {
		bonus := s.catalog.BonusFor(decimal.NewFromInt(c.amount))
		s.True(bonus.Equal(decimal.NewFromInt(c.bonus)), "amount %d: expected %d, got %s", c.amount, c.bonus, bonus)
	}
}

func (s *CatalogTestSuite) TestBonusFor_CustomTiers() {
	cat := New(Args{
		CustomMin: decimal.NewFromInt(1),
		BonusTiers: []domain.BonusTier{
			{Threshold: decimal.NewFromInt(100), Percent: decimal.NewFromInt(5)},
		},
	})

	s.True(cat.BonusFor(decimal.NewFromInt(99)).IsZero())
	s.True(cat.BonusFor(decimal.NewFromInt(200)).Equal(decimal.NewFromInt(10)))
}

func (s *CatalogTestSuite) TestValidateCustomAmount() {
	s.Require().NoError(s.catalog.ValidateCustomAmount(decimal.NewFromInt(100)))
	s.Require().NoError(s.catalog.ValidateCustomAmount(decimal.NewFromInt(100000)))

	s.Require().ErrorIs(s.catalog.ValidateCustomAmount(decimal.NewFromInt(99)), domain.ErrInvalidAmount)
	s.Require().ErrorIs(s.catalog.ValidateCustomAmount(decimal.NewFromInt(100001)), domain.ErrInvalidAmount)
}

func (s *CatalogTestSuite) TestValidateCustomAmount_NoCeiling() {
	cat := New(Args{CustomMin: decimal.NewFromInt(100)})

	s.Require().NoError(cat.ValidateCustomAmount(decimal.NewFromInt(10000000)))
}
