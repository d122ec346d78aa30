/*
Package selector implements wallet selection and transaction signing for NEAR
applications.

A Selector wires three pieces behind one API: a reducer-driven session store
that owns which wallet is active, a set of wallet adapters speaking their
backends' native protocols, and a signing pipeline that assigns gap-free
nonces, Borsh-encodes transactions and submits them in order.

	sel, err := selector.New(selector.Config{
		Network:    "testnet",
		ContractID: "guest-book.testnet",
		Modules: []ports.ModuleFactory{
			bridge.SetupModule("http://127.0.0.1:16180", injected.Params{}),
		},
	})
	if err != nil {
		log.Fatal(err)
	}
	if err := sel.Init(ctx); err != nil {
		log.Fatal(err)
	}

	accounts, err := sel.SignIn(ctx, "bridge-wallet", ports.SignInParams{})

Selections persist across restarts when a durable storage adapter is supplied
with WithStorage; see pkg/adapters/memory and pkg/adapters/redis.
*/
package selector
