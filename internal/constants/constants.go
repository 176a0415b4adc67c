package constants

import "time"

const (
	AppName    = "wallet-dashboard"
	AssetsFile = "assets.json"

	SchemaV1      = 1
	FilePerm      = 0o600
	DirectoryPerm = 0o700

	NativeAddr     = "0x0000000000000000000000000000000000000000"
	NativeDecimals = 18
)

// Reserved synthetic asset injected into the dashboard token list.
const (
	SyntheticContract = "0x5ca1ab1e5ca1ab1e5ca1ab1e5ca1ab1e5ca1ab1e"
	SyntheticSymbol   = "SCOIN"
	SyntheticName     = "SCOIN"
	SyntheticDecimals = 6
	SyntheticImage    = "https://i.ibb.co/RgB8HR0/SCOIN.png"

	// FiatNormalizationDivisor scales the synthetic asset's fiat value.
	FiatNormalizationDivisor = 40000

	// RenderDecimals is the number of fractional digits kept when a
	// minimal-unit balance is rendered in human units.
	RenderDecimals = 5
)

const (
	DefaultNativeCurrency = "ETH"
	DefaultNetwork        = "rinkeby"
	NavbarTitleKey        = "wallet.title"
	FallbackViewName      = "Wallet"

	DefaultHistorySettleDelay = 1 * time.Second
)
