package common

const (
	KEY_STRATEGY_CATALOG = "catalog:strategies"
	KEY_SYMBOL_CATALOG   = "catalog:symbols:%s"
)

const (
	EXCHANGE_NSE = "NSE"
	EXCHANGE_BSE = "BSE"
)

func GetExchangeList() []string {
	return []string{
		EXCHANGE_NSE,
		EXCHANGE_BSE,
	}
}
