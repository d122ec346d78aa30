/*
Package ports defines the boundary interfaces of the wallet selector.

Following Hexagonal Architecture, the core (store, controller, signing pipeline)
depends only on these contracts; adapters under pkg/adapters and pkg/wallet
provide the concrete implementations (key-value storage, chain RPC, external
wallet handles).

The central contract is Wallet: one implementation per external wallet backend,
all interchangeable behind the controller.
*/
package ports
