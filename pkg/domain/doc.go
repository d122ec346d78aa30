/*
Package domain contains the core domain models for the wallet selector.

It defines the fundamental entities of wallet selection and transaction signing:
accounts, access keys, actions, transactions and network descriptors. This package is
kept pure and free of external I/O, following Hexagonal Architecture principles — the
only dependencies are the Borsh and base58 codecs needed to express the chain's
canonical wire format.

# Key Entities

  - Account: An authenticated identity (account id + public key) reported by a wallet.
  - AccessKeyView: The on-chain authorization record for a key, fetched fresh per
    signing operation.
  - Action: One element of a transaction, expressed as a closed Borsh enum.
  - Transaction / RawTransaction: The abstract request and its fully resolved,
    encodable counterpart.
  - ModuleDescriptor: Static display metadata for a configured wallet backend.
*/
package domain
