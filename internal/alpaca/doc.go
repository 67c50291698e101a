// Package alpaca implements the Alpaca market data stream.
//
// A StreamClient speaks the v2 stock stream protocol: an auth frame carrying
// the key pair, then subscribe and unsubscribe frames listing symbols per
// channel. Incoming trades, quotes and minute bars are decoded into model
// types and delivered to the matching subscription's Received event.
//
// StreamClient implements stream.SubscriptionClient, so it can be wrapped by
// stream.NewReconnectingClient to survive dropped connections:
//
//	client := alpaca.NewStreamClient(alpaca.DefaultStreamURL, creds)
//	rc, err := stream.NewReconnectingClient(client)
//	if err != nil {
//		return err
//	}
//	trades := alpaca.NewTradeSubscription("AAPL")
//	trades.Received().Add(func(t model.Trade) { ... })
//	if _, err := rc.ConnectAndAuthenticate(ctx); err != nil {
//		return err
//	}
//	err = rc.Subscribe(ctx, trades)
package alpaca
