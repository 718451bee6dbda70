package domain

// Provider identifies the external data source a record came from.
type Provider string

const (
	ProviderCoinAPI     Provider = "coinapi"
	ProviderCryptoPanic Provider = "cryptopanic"
	ProviderLunarCrush  Provider = "lunarcrush"
	ProviderSantiment   Provider = "santiment"
	ProviderYahoo       Provider = "yahoo"
)

// String returns the string representation of Provider.
func (p Provider) String() string {
	return string(p)
}

// IsValid checks if the provider is a known value.
func (p Provider) IsValid() bool {
	switch p {
	case ProviderCoinAPI, ProviderCryptoPanic, ProviderLunarCrush, ProviderSantiment, ProviderYahoo:
		return true
	}
	return false
}
