// Package message implements the store-and-forward queue used between
// management API nodes.
//
// A Message is a TTL-bounded envelope addressed to a recipient class
// (RecipientManagementAPIs) and labelled with tags (TagDataToIndex). Nodes
// poll with Service.Search, which only returns live messages the calling
// node has not acknowledged yet, and mark processed messages with
// Service.Ack. Acknowledgements are kept per node: every node sees every
// message once.
//
// Ack never returns an error. A failed acknowledgement means the message is
// returned again by the next Search, which consumers must tolerate.
//
// Persistence is abstracted by Store. MemoryStore serves tests and local
// development; package mongostore provides the MongoDB implementation.
//
//	svc := message.NewService(store, node.Generate(), message.WithLogger(log))
//	err := svc.Send(ctx, message.NewMessage{
//	    To:      message.RecipientManagementAPIs.String(),
//	    Tags:    []message.Tag{message.TagDataToIndex},
//	    Content: `{"id":"api-1","action":"I","type":"api"}`,
//	    TTL:     time.Hour,
//	})
package message
