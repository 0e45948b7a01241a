// Package catalog содержит неизменяемый каталог пакетов кредитов и бонусную таблицу.
// Каталог управляется вне рантайма, на запись недоступен.
package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-credits/internal/domain"
)

type Catalog struct {
	packages   []domain.Package
	bonusTiers []domain.BonusTier
	customMin  decimal.Decimal
	customMax  decimal.Decimal
}

type Args struct {
	// CustomMin нижняя граница произвольной суммы покупки.
	CustomMin decimal.Decimal
	// CustomMax верхняя граница произвольной суммы. Ноль означает отсутствие потолка.
	CustomMax decimal.Decimal
	// BonusTiers пороги бонусов. Если срез пуст, используется таблица по умолчанию.
	BonusTiers []domain.BonusTier
}

func New(args Args) *Catalog {
	tiers := args.BonusTiers
	if len(tiers) == 0 {
		tiers = defaultBonusTiers()
	}
	c := &Catalog{
		bonusTiers: tiers,
		customMin:  args.CustomMin,
		customMax:  args.CustomMax,
	}
	c.packages = c.buildPackages()
	return c
}

// Packages возвращает копию списка пакетов, включая "пакет" произвольной суммы.
func (c *Catalog) Packages() []domain.Package {
	packages := make([]domain.Package, len(c.packages))
	copy(packages, c.packages)
	return packages
}

// FindPackage возвращает пакет по ID или domain.ErrRecordNotFound.
func (c *Catalog) FindPackage(id string) (*domain.Package, error) {
	for _, p := range c.packages {
		if p.ID == id {
			pkg := p
			return &pkg, nil
		}
	}
	return nil, domain.ErrRecordNotFound
}

// BonusFor возвращает сумму бонусных кредитов для суммы покупки amount.
// Применяется самый высокий порог, который сумма достигла или превысила.
// Пороги не пересекаются, таблица отсортирована по возрастанию.
func (c *Catalog) BonusFor(amount decimal.Decimal) decimal.Decimal {
	var percent decimal.Decimal
	for _, tier := range c.bonusTiers {
		if amount.GreaterThanOrEqual(tier.Threshold) {
			percent = tier.Percent
		}
	}
	if percent.IsZero() {
		return decimal.Zero
	}
	return amount.Mul(percent).Div(decimal.NewFromInt(100)).Round(0) //nolint:mnd
}

// ValidateCustomAmount проверяет произвольную сумму против настроенных границ.
// Возвращает domain.ErrInvalidAmount при нарушении.
func (c *Catalog) ValidateCustomAmount(amount decimal.Decimal) error {
	if amount.LessThan(c.customMin) {
		return domain.ErrInvalidAmount
	}
	if !c.customMax.IsZero() && amount.GreaterThan(c.customMax) {
		return domain.ErrInvalidAmount
	}
	return nil
}

func (c *Catalog) buildPackages() []domain.Package {
	fixed := []struct {
		id   string
		name string
		base int64
	}{
		{id: "starter", name: "Starter", base: 500},
		{id: "standard", name: "Standard", base: 1000},
		{id: "pro", name: "Pro", base: 2000},
		{id: "enterprise", name: "Enterprise", base: 5000},
	}

	var packages = make([]domain.Package, 0, len(fixed)+1)
	for _, f := range fixed {
		base := decimal.NewFromInt(f.base)
		packages = append(packages, domain.Package{
			ID:           f.id,
			Name:         f.name,
			BaseCredits:  base,
			BonusCredits: c.BonusFor(base),
			Price:        base,
		})
	}

	packages = append(packages, domain.Package{
		ID:        domain.PackageCustomID,
		Name:      "Custom amount",
		MinAmount: c.customMin,
		MaxAmount: c.customMax,
	})
	return packages
}

// defaultBonusTiers таблица по умолчанию: 500 -> 10%, 1000 -> 15%, 2000 -> 20%,
// 5000 -> 25%. Суммы ниже первого порога бонуса не получают.
func defaultBonusTiers() []domain.BonusTier {
	return []domain.BonusTier{
		{Threshold: decimal.NewFromInt(500), Percent: decimal.NewFromInt(10)},
		{Threshold: decimal.NewFromInt(1000), Percent: decimal.NewFromInt(15)},
		{Threshold: decimal.NewFromInt(2000), Percent: decimal.NewFromInt(20)},
		{Threshold: decimal.NewFromInt(5000), Percent: decimal.NewFromInt(25)},
	}
}
