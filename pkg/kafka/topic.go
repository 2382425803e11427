package kafka

// TopicPrefix namespaces every storefront topic.
const TopicPrefix = "storefront"

// Topic builds a topic name such as "storefront.order.placed".
func Topic(domain, action string) string {
	return TopicPrefix + "." + domain + "." + action
}
