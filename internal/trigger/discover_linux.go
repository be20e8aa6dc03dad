package trigger

func listBridges() ([]Match, error) { return Discover(SysfsRoot) }
