package wallet

// KnownWallets returns the built-in placeholder catalog: wallets commonly
// offered in install prompts when no live provider is present. Callers feed
// these to Registry.RegisterKnown.
func KnownWallets() []Descriptor {
	full := []Feature{
		FeatureConnect, FeatureDisconnect, FeatureSignTransaction,
		FeatureSignAllTransactions, FeatureSignMessage, FeatureSignAndSend,
	}
	return []Descriptor{
		{Name: "Phantom", Chains: []string{"solana:mainnet", "solana:devnet"}, Features: full},
		{Name: "Solflare", Chains: []string{"solana:mainnet", "solana:devnet", "solana:testnet"}, Features: full},
		{Name: "Backpack", Chains: []string{"solana:mainnet", "solana:devnet"}, Features: full},
		{Name: "Trust Wallet", Chains: []string{"solana:mainnet"}, Features: []Feature{
			FeatureConnect, FeatureDisconnect, FeatureSignTransaction, FeatureSignMessage,
		}},
	}
}
