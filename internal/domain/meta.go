package domain

// CompanyMeta is static reference metadata for a symbol. Used to fill sector
// and beta when a provider omits fundamentals, and to seed the simulated
// quote generator.
type CompanyMeta struct {
	Name   string
	Sector string
	Base   float64 // baseline price for the simulator
	Beta   float64
}

// CompanyMetadata maps well-known symbols to their reference metadata.
var CompanyMetadata = map[string]CompanyMeta{
	"NVDA":  {Name: "NVIDIA Corporation", Sector: "Technology", Base: 875, Beta: 1.72},
	"AAPL":  {Name: "Apple Inc.", Sector: "Technology", Base: 189, Beta: 1.21},
	"MSFT":  {Name: "Microsoft Corporation", Sector: "Technology", Base: 415, Beta: 0.90},
	"GOOGL": {Name: "Alphabet Inc.", Sector: "Technology", Base: 175, Beta: 1.05},
	"AMZN":  {Name: "Amazon.com Inc.", Sector: "Consumer", Base: 195, Beta: 1.15},
	"META":  {Name: "Meta Platforms Inc.", Sector: "Technology", Base: 510, Beta: 1.28},
	"TSLA":  {Name: "Tesla Inc.", Sector: "Consumer", Base: 245, Beta: 2.01},
	"JPM":   {Name: "JPMorgan Chase & Co.", Sector: "Financials", Base: 197, Beta: 1.10},
	"XOM":   {Name: "Exxon Mobil Corporation", Sector: "Energy", Base: 112, Beta: 0.85},
	"TSM":   {Name: "Taiwan Semiconductor", Sector: "Technology", Base: 155, Beta: 1.35},
	"AVGO":  {Name: "Broadcom Inc.", Sector: "Technology", Base: 145, Beta: 1.30},
	"LLY":   {Name: "Eli Lilly and Company", Sector: "Healthcare", Base: 780, Beta: 0.42},
	"V":     {Name: "Visa Inc.", Sector: "Financials", Base: 278, Beta: 0.95},
	"COST":  {Name: "Costco Wholesale Corp.", Sector: "Consumer", Base: 895, Beta: 0.78},
	"WMT":   {Name: "Walmart Inc.", Sector: "Consumer", Base: 88, Beta: 0.52},
	"JNJ":   {Name: "Johnson & Johnson", Sector: "Healthcare", Base: 152, Beta: 0.55},
	"BAC":   {Name: "Bank of America Corp.", Sector: "Financials", Base: 39, Beta: 1.35},
	"MA":    {Name: "Mastercard Inc.", Sector: "Financials", Base: 465, Beta: 0.98},
	"UNH":   {Name: "UnitedHealth Group", Sector: "Healthcare", Base: 520, Beta: 0.62},
	"HD":    {Name: "Home Depot Inc.", Sector: "Consumer", Base: 348, Beta: 1.05},
	"SPY":   {Name: "S&P 500 ETF", Sector: "ETF", Base: 510, Beta: 1.00},
	"QQQ":   {Name: "Nasdaq 100 ETF", Sector: "ETF", Base: 435, Beta: 1.12},
}

// MetaFor returns metadata for a symbol, falling back to neutral defaults
// for unknown tickers.
func MetaFor(symbol string) CompanyMeta {
	if m, ok := CompanyMetadata[symbol]; ok {
		return m
	}
	return CompanyMeta{Name: symbol, Sector: "Unknown", Base: 100, Beta: 1.0}
}
